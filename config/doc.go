// Package config loads the service configuration.
//
// Values come from an optional YAML file, overridden by environment
// variables (a .env file in the working directory is loaded first). The
// result is validated with struct tags and unset values get defaults.
// Exactly one of gtfs.path and gtfs.url must be set.
package config
