package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for unset values.
const (
	DefaultPort              = 16181
	DefaultUpdateInterval    = time.Hour
	DefaultPollInterval      = time.Minute
	DefaultDebounce          = 500 * time.Millisecond
	DefaultStartupTimeout    = 5 * time.Minute
	DefaultDownloadRetries   = 3
	DefaultRealtimeInterval  = time.Second
	DefaultRealtimeTimeout   = 10 * time.Second
	DefaultTripIDCacheSize   = 10_000
	DefaultPolylineCacheSize = 1_000_000
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// LoadAppConfig loads and validates the configuration. path names a YAML
// file; an empty path uses the environment alone.
func LoadAppConfig(path string) (*AppConfig, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func loadDotEnv(name string) error {
	if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// applyEnv overrides file values with the environment.
func applyEnv(cfg *AppConfig) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("GTFS_FEED_PATH", &cfg.GTFS.Path)
	setString("GTFS_FEED_URL", &cfg.GTFS.URL)
	setString("GTFS_RT_VEHICLE_POSITIONS_URL", &cfg.GTFSRT.VehiclePositionsURL)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"GTFS_UPDATE_INTERVAL", &cfg.GTFS.UpdateInterval},
		{"GTFS_POLL_INTERVAL", &cfg.GTFS.PollInterval},
		{"GTFS_RT_UPDATE_INTERVAL", &cfg.GTFSRT.UpdateInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.GTFS.UpdateInterval == 0 {
		cfg.GTFS.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.GTFS.PollInterval == 0 {
		cfg.GTFS.PollInterval = DefaultPollInterval
	}
	if cfg.GTFS.Debounce == 0 {
		cfg.GTFS.Debounce = DefaultDebounce
	}
	if cfg.GTFS.StartupTimeout == 0 {
		cfg.GTFS.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.GTFS.DownloadRetries == 0 {
		cfg.GTFS.DownloadRetries = DefaultDownloadRetries
	}
	if cfg.GTFSRT.UpdateInterval == 0 {
		cfg.GTFSRT.UpdateInterval = DefaultRealtimeInterval
	}
	if cfg.GTFSRT.Timeout == 0 {
		cfg.GTFSRT.Timeout = DefaultRealtimeTimeout
	}
	if cfg.Cache.TripIDs == 0 {
		cfg.Cache.TripIDs = DefaultTripIDCacheSize
	}
	if cfg.Cache.PolylineChars == 0 {
		cfg.Cache.PolylineChars = DefaultPolylineCacheSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
