package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Store     StoreConfig     `mapstructure:"store"`
	Places    PlacesConfig    `mapstructure:"places"`
	Preset    PresetConfig    `mapstructure:"preset"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// UpstreamConfig addresses the listing service behind the CORS proxy.
type UpstreamConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	ListingPath  string  `mapstructure:"listing_path"`
	DetailPath   string  `mapstructure:"detail_path"`
	LoginPath    string  `mapstructure:"login_path"`
	RadiusMeters float64 `mapstructure:"radius_meters"`
	Limit        int     `mapstructure:"limit"`
	Timeout      int     `mapstructure:"timeout"`
}

type GeocoderConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	CountryHint string  `mapstructure:"country_hint"`
	RatePerSec  float64 `mapstructure:"rate_per_sec"`
	UserAgent   string  `mapstructure:"user_agent"`
	Timeout     int     `mapstructure:"timeout"`
}

// StoreConfig selects the device-local key-value store.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // memory, sqlite or valkey
	SQLitePath string `mapstructure:"sqlite_path"`
	ValkeyAddr string `mapstructure:"valkey_addr"`
	Capacity   int    `mapstructure:"capacity"` // bytes, 0 means unbounded
}

type PlacesConfig struct {
	Path string `mapstructure:"path"`
}

type PresetConfig struct {
	Path string `mapstructure:"path"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"` // empty uses the in-process hub
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("upstream.base_url", "http://localhost:8787")
	v.SetDefault("upstream.listing_path", "/api/objects")
	v.SetDefault("upstream.detail_path", "/object")
	v.SetDefault("upstream.login_path", "/login")
	v.SetDefault("upstream.radius_meters", 50000)
	v.SetDefault("upstream.limit", 1500)
	v.SetDefault("upstream.timeout", 20)
	v.SetDefault("geocoder.base_url", "http://localhost:8787/nominatim.openstreetmap.org")
	v.SetDefault("geocoder.country_hint", "Nederland")
	v.SetDefault("geocoder.rate_per_sec", 1.0)
	v.SetDefault("geocoder.user_agent", "campfinder/1.0")
	v.SetDefault("geocoder.timeout", 10)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "campfinder.db")
	v.SetDefault("store.valkey_addr", "localhost:6379")
	v.SetDefault("store.capacity", 5*1024*1024)
	v.SetDefault("places.path", "data/places.csv")
	v.SetDefault("preset.path", "presets/listings.json")
	v.SetDefault("nats.url", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CAMPFINDER_UPSTREAM_BASE_URL → upstream.base_url
	v.SetEnvPrefix("CAMPFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Upstream.RadiusMeters <= 0 {
		errs = append(errs, "upstream.radius_meters must be positive")
	}
	if c.Upstream.Limit <= 0 {
		errs = append(errs, "upstream.limit must be positive")
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, "upstream.timeout must be positive")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Geocoder.RatePerSec <= 0 {
		errs = append(errs, "geocoder.rate_per_sec must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "valkey":
		if c.Store.ValkeyAddr == "" {
			errs = append(errs, "store.valkey_addr is required for the valkey driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be memory, sqlite or valkey, got %q", c.Store.Driver))
	}
	if c.Store.Capacity < 0 {
		errs = append(errs, "store.capacity must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
