package config

import "time"

// ServerConfig contains server configuration
type ServerConfig struct {
	Port        int      `yaml:"port" validate:"gte=0,lte=65535"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// GTFSConfig selects the static feed and how it is refreshed.
type GTFSConfig struct {
	Path string `yaml:"path" validate:"required_without=URL,excluded_with=URL"`
	URL  string `yaml:"url" validate:"omitempty,url"`

	// UpdateInterval is the download interval for URL feeds.
	UpdateInterval time.Duration `yaml:"updateInterval" validate:"gte=0"`
	// PollInterval is the hash check interval for file feeds.
	PollInterval   time.Duration `yaml:"pollInterval" validate:"gte=0"`
	Debounce       time.Duration `yaml:"debounce" validate:"gte=0"`
	StartupTimeout time.Duration `yaml:"startupTimeout" validate:"gte=0"`
	// DownloadRetries bounds retries of a failed download within one cycle.
	DownloadRetries uint64 `yaml:"downloadRetries"`
}

// GTFSRTConfig contains GTFS-Realtime feed configuration. An empty URL
// disables vehicle positions.
type GTFSRTConfig struct {
	VehiclePositionsURL string        `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	UpdateInterval      time.Duration `yaml:"updateInterval" validate:"gte=0"`
	Timeout             time.Duration `yaml:"timeout" validate:"gte=0"`
}

// CacheConfig bounds the per-snapshot caches.
type CacheConfig struct {
	TripIDs       int `yaml:"tripIds" validate:"gte=0"`
	PolylineChars int `yaml:"polylineChars" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	GTFS    GTFSConfig    `yaml:"gtfs"`
	GTFSRT  GTFSRTConfig  `yaml:"gtfsrt"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}
