// Package config loads and validates renderer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Preview   PreviewConfig   `mapstructure:"preview"`
	Render    RenderConfig    `mapstructure:"render"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// BaseURL is the externally advertised address the headless browser uses
	// to navigate back to the service's own preview page.
	BaseURL string `mapstructure:"base_url"`
}

// RateLimitConfig bounds render requests per client address.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

// HeadlessConfig configures the headless rendering session.
type HeadlessConfig struct {
	NavTimeoutSec   int     `mapstructure:"nav_timeout_seconds"`
	ElementWaitSec  int     `mapstructure:"element_wait_seconds"`
	MaxParallel     int     `mapstructure:"max_parallel"`
	PageOpensPerSec float64 `mapstructure:"page_opens_per_second"`
}

// PreviewConfig locates the prebuilt static preview bundle.
type PreviewConfig struct {
	Dir string `mapstructure:"dir"`
}

// RenderConfig holds canonicalization parameters.
type RenderConfig struct {
	TargetSize int `mapstructure:"target_size"`
}

// StorageConfig selects and configures the artifact store.
type StorageConfig struct {
	Provider string        `mapstructure:"provider"`
	Prefix   string        `mapstructure:"prefix"`
	GCS      GCSConfig     `mapstructure:"gcs"`
	Local    LocalFSConfig `mapstructure:"local"`
}

// GCSConfig names the Cloud Storage bucket for artifacts.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// LocalFSConfig sets the directory for the filesystem artifact store.
type LocalFSConfig struct {
	Dir string `mapstructure:"dir"`
}

// PublishConfig selects and configures the notification publisher.
type PublishConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// BatchConfig governs the offline pipeline.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RENDERER")
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3002)
	v.SetDefault("server.base_url", "http://localhost:3002")
	v.SetDefault("ratelimit.per_minute", 10)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.element_wait_seconds", 10)
	v.SetDefault("headless.max_parallel", 4)
	v.SetDefault("headless.page_opens_per_second", 0)
	v.SetDefault("preview.dir", "web/preview")
	v.SetDefault("render.target_size", 224)
	v.SetDefault("storage.provider", "noop")
	v.SetDefault("storage.prefix", "icons")
	v.SetDefault("publish.provider", "noop")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url must be set")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("ratelimit.per_minute must be > 0")
	}
	if c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0")
	}
	if c.Render.TargetSize <= 0 {
		return fmt.Errorf("render.target_size must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set when provider is gcs")
		}
	case "local":
		if c.Storage.Local.Dir == "" {
			return fmt.Errorf("storage.local.dir must be set when provider is local")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Publish.Provider {
	case "pubsub":
		if c.Publish.ProjectID == "" || c.Publish.TopicID == "" {
			return fmt.Errorf("publish.project_id and publish.topic_id must be set when provider is pubsub")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown publish provider: %s", c.Publish.Provider)
	}
	return nil
}

// NavTimeout converts the navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// ElementWait converts the element-appearance wait into a duration.
func (c Config) ElementWait() time.Duration {
	return time.Duration(c.Headless.ElementWaitSec) * time.Second
}
