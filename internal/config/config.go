// Package config loads and validates job configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/stationsync/internal/storage"
)

// EnvConfigFile names the environment variable holding an optional config file path.
const EnvConfigFile = "STATIONSYNC_CONFIG_FILE"

// Config captures all job configuration knobs loaded via Viper.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// StoreConfig selects and addresses the document store.
type StoreConfig struct {
	Driver                string `mapstructure:"driver"`
	URI                   string `mapstructure:"uri"`
	Database              string `mapstructure:"database"`
	SettingsCollection    string `mapstructure:"settings_collection"`
	StationsCollection    string `mapstructure:"stations_collection"`
	AuditCollection       string `mapstructure:"audit_collection"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	EnsureSchema          bool   `mapstructure:"ensure_schema"`
}

// UpstreamConfig configures the directory API client.
type UpstreamConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Language          string `mapstructure:"language"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	MaxBodyBytes      int    `mapstructure:"max_body_bytes"`
	StreamURLTemplate string `mapstructure:"stream_url_template"`
	LogoURLTemplate   string `mapstructure:"logo_url_template"`
	// Headers are added to every upstream request.
	Headers map[string]string `mapstructure:"headers"`
}

// TasksConfig names the settings discriminators and the fallback query.
type TasksConfig struct {
	CountryConfigName string `mapstructure:"country_config_name"`
	PlaceConfigName   string `mapstructure:"place_config_name"`
	DefaultQuery      string `mapstructure:"default_query"`
}

// ScheduleConfig controls the calendar run gate.
type ScheduleConfig struct {
	IntervalDays int  `mapstructure:"interval_days"`
	Force        bool `mapstructure:"force"`
}

// LoggingConfig toggles zap development features and the audit mirror.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Audit       bool   `mapstructure:"audit"`
	AuditLevel  string `mapstructure:"audit_level"`
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// PubSubConfig holds metadata for sync notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from an optional file plus STATIONSYNC_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STATIONSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", storage.DriverMongo)
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", "app")
	v.SetDefault("store.settings_collection", "app_settings")
	v.SetDefault("store.stations_collection", "radio_garden_channels")
	v.SetDefault("store.audit_collection", "app_audit_log")
	v.SetDefault("store.connect_timeout_seconds", 10)
	v.SetDefault("store.ensure_schema", false)
	v.SetDefault("upstream.base_url", "https://radio.garden/api")
	v.SetDefault("upstream.language", "en")
	v.SetDefault("upstream.timeout_seconds", 15)
	v.SetDefault("upstream.user_agent", "stationsync/1.0")
	v.SetDefault("upstream.max_body_bytes", 10<<20)
	v.SetDefault("upstream.stream_url_template", "https://radio.garden/api/ara/content/listen/{key}/channel.mp3")
	v.SetDefault("upstream.logo_url_template", "https://picsum.photos/150/150?random={id}")
	v.SetDefault("tasks.country_config_name", "radio_search")
	v.SetDefault("tasks.place_config_name", "radio_search_by_place")
	v.SetDefault("tasks.default_query", "india")
	v.SetDefault("schedule.interval_days", 10)
	v.SetDefault("schedule.force", false)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.audit", true)
	v.SetDefault("logging.audit_level", "info")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "stationsync")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case storage.DriverMongo:
		if c.Store.Database == "" {
			return fmt.Errorf("store.database is required for the mongo driver")
		}
		fallthrough
	case storage.DriverPostgres:
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for the %s driver", c.Store.Driver)
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of mongo, postgres, memory; got %q", c.Store.Driver)
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream.timeout_seconds must be > 0")
	}
	if !strings.Contains(c.Upstream.StreamURLTemplate, "{key}") {
		return fmt.Errorf("upstream.stream_url_template must contain {key}")
	}
	if c.Schedule.IntervalDays <= 0 {
		return fmt.Errorf("schedule.interval_days must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// StorageConfig converts the store section for storage.Open.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:             c.Store.Driver,
		URI:                c.Store.URI,
		Database:           c.Store.Database,
		SettingsCollection: c.Store.SettingsCollection,
		StationsCollection: c.Store.StationsCollection,
		AuditCollection:    c.Store.AuditCollection,
		ConnectTimeout:     time.Duration(c.Store.ConnectTimeoutSeconds) * time.Second,
		EnsureSchema:       c.Store.EnsureSchema,
	}
}

// UpstreamHeaders returns upstream.headers as canonical HTTP headers, or nil when none are set.
func (c Config) UpstreamHeaders() http.Header {
	if len(c.Upstream.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(c.Upstream.Headers))
	for k, v := range c.Upstream.Headers {
		h.Set(k, v)
	}
	return h
}

// UpstreamTimeout is the per-request bound for directory calls.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}
