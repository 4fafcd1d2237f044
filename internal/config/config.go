// Package config defines service configuration, layered from defaults, an
// optional YAML file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all service settings.
type Config struct {
	// FeedURL is the FDSN event endpoint base URL.
	FeedURL string `koanf:"feed_url"`

	// FeedWindow is how far back each fetch reaches.
	FeedWindow time.Duration `koanf:"feed_window"`

	// FeedMinMagnitude is the magnitude floor passed to the feed query.
	FeedMinMagnitude float64 `koanf:"feed_min_magnitude"`

	FeedTimeout  time.Duration `koanf:"feed_timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
	AlertDwell   time.Duration `koanf:"alert_dwell"`

	HTTPAddr        string        `koanf:"http_addr"`
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// DisplayTimezone names the IANA zone used for day grouping, e.g.
	// "Europe/Rome". "Local" uses the process zone.
	DisplayTimezone string `koanf:"display_timezone"`

	Notify  NotifyConfig  `koanf:"notify"`
	Display DisplayConfig `koanf:"display"`
	Kafka   KafkaConfig   `koanf:"kafka"`
	Ntfy    NtfyConfig    `koanf:"ntfy"`

	// ArchivePath is the SQLite archive file. Empty disables archiving.
	ArchivePath string `koanf:"archive_path"`
}

// NotifyConfig selects which novel events fire alerts.
type NotifyConfig struct {
	Enabled      bool    `koanf:"enabled"`
	MinMagnitude float64 `koanf:"min_magnitude"`

	// Scope is one of "global", "geofence", or "places".
	Scope string `koanf:"scope"`

	// PlaceTerms is a comma-separated list of place substrings for the
	// places scope.
	PlaceTerms string `koanf:"place_terms"`

	// GeofenceRadiusKm is the alert radius around the user position for
	// the geofence scope.
	GeofenceRadiusKm float64 `koanf:"geofence_radius_km"`
}

// DisplayConfig narrows the event list view. Independent of notifications.
type DisplayConfig struct {
	MinMagnitude     float64 `koanf:"min_magnitude"`
	Scope            string  `koanf:"scope"`
	PlaceTerms       string  `koanf:"place_terms"`
	GeofenceRadiusKm float64 `koanf:"geofence_radius_km"`
}

// KafkaConfig configures the alert bus publisher.
type KafkaConfig struct {
	Enabled bool   `koanf:"enabled"`
	Brokers string `koanf:"brokers"`
	Topic   string `koanf:"topic"`
}

// NtfyConfig configures push delivery via an ntfy server.
type NtfyConfig struct {
	Enabled   bool   `koanf:"enabled"`
	ServerURL string `koanf:"server_url"`
	Topic     string `koanf:"topic"`
	Priority  string `koanf:"priority"`
	DryRun    bool   `koanf:"dry_run"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		FeedURL:          "https://webservices.ingv.it/fdsnws/event/1/query",
		FeedWindow:       24 * time.Hour,
		FeedMinMagnitude: 0,
		FeedTimeout:      15 * time.Second,
		PollInterval:     60 * time.Second,
		AlertDwell:       8 * time.Second,
		HTTPAddr:         ":8080",
		LogLevel:         "info",
		LogFormat:        "json",
		ShutdownTimeout:  10 * time.Second,
		DisplayTimezone:  "Local",
		Notify: NotifyConfig{
			Enabled:          true,
			MinMagnitude:     2.0,
			Scope:            "global",
			GeofenceRadiusKm: 100,
		},
		Display: DisplayConfig{
			Scope: "global",
		},
		Kafka: KafkaConfig{
			Brokers: "localhost:9092",
			Topic:   "quake-alerts",
		},
		Ntfy: NtfyConfig{
			ServerURL: "https://ntfy.sh",
			Priority:  "high",
		},
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if QUAKE_CONFIG is set
//  3. env (prefix QUAKE_, double underscore for nesting)
func Load() (*Config, error) {
	cfg := *New()

	k := koanf.New(".")

	if path := os.Getenv("QUAKE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// QUAKE_POLL_INTERVAL -> poll_interval, QUAKE_NOTIFY__SCOPE -> notify.scope
	envProvider := env.Provider("QUAKE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "QUAKE_"))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.FeedURL == "" {
		return errors.New("feed_url must not be empty")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.AlertDwell <= 0 {
		return errors.New("alert_dwell must be positive")
	}
	if c.FeedWindow <= 0 {
		return errors.New("feed_window must be positive")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	if !validScope(c.Notify.Scope) {
		return fmt.Errorf("notify.scope %q is not one of global, geofence, places", c.Notify.Scope)
	}
	if !validScope(c.Display.Scope) {
		return fmt.Errorf("display.scope %q is not one of global, geofence, places", c.Display.Scope)
	}
	if c.Notify.Scope == "geofence" && c.Notify.GeofenceRadiusKm <= 0 {
		return errors.New("notify.geofence_radius_km must be positive for the geofence scope")
	}
	if c.Kafka.Enabled && c.Kafka.Brokers == "" {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka is enabled")
	}
	if c.Ntfy.Enabled && c.Ntfy.Topic == "" {
		return errors.New("ntfy.topic is required when ntfy is enabled")
	}
	return nil
}

func validScope(s string) bool {
	switch s {
	case "", "global", "geofence", "radius", "places", "place":
		return true
	}
	return false
}

// KafkaBrokerList splits the comma-separated broker string.
func (c *Config) KafkaBrokerList() []string {
	parts := strings.Split(c.Kafka.Brokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
