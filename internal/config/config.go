package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration file version Load accepts.
const CurrentVersion = "1.0"

// Config is the resolved PageBuilder configuration. It is loaded once at process
// start and passed explicitly to every component.
type Config struct {
	Version    string           `yaml:"version"`
	Site       SiteConfig       `yaml:"site"`
	Contentful ContentfulConfig `yaml:"contentful"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Output     OutputConfig     `yaml:"output"`
	Events     EventsConfig     `yaml:"events"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// SiteConfig holds the site-wide metadata used when a page cannot supply its own.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// ContentfulConfig identifies the content repository endpoint and its credentials.
// Tokens are normally supplied through the environment, not the file.
type ContentfulConfig struct {
	SpaceID            string  `yaml:"space_id"`
	Environment        string  `yaml:"environment"`
	AccessToken        string  `yaml:"access_token,omitempty"`
	PreviewAccessToken string  `yaml:"preview_access_token,omitempty"`
	GraphQLURL         string  `yaml:"graphql_url,omitempty"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	Burst              int     `yaml:"burst"`
}

// GenerationConfig holds the freshness windows of the generation strategies.
type GenerationConfig struct {
	// RevalidateSeconds is the incremental window for every non-home route.
	RevalidateSeconds int `yaml:"revalidate_seconds"`
	// DefaultTTLSeconds applies to cacheable fetches that carry no explicit window.
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend        CacheBackend `yaml:"backend"`
	NATSURL        string       `yaml:"nats_url,omitempty"`
	Bucket         string       `yaml:"bucket,omitempty"`
	RefreshTimeout string       `yaml:"refresh_timeout"`
	WarmInterval   string       `yaml:"warm_interval,omitempty"`
	// Broadcast publishes revalidations to other instances over NATS.
	Broadcast      bool   `yaml:"broadcast"`
	BroadcastTopic string `yaml:"broadcast_subject,omitempty"`
}

// ServerConfig configures the HTTP server started by `serve`.
type ServerConfig struct {
	Port             int    `yaml:"port"`
	PreviewSecret    string `yaml:"preview_secret,omitempty"`
	RevalidateSecret string `yaml:"revalidate_secret,omitempty"`
	TemplatesDir     string `yaml:"templates_dir,omitempty"`
	WatchTemplates   bool   `yaml:"watch_templates"`
	ShutdownTimeout  string `yaml:"shutdown_timeout"`
}

// OutputConfig configures the static generation pass.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"`
	LinkAudit bool   `yaml:"link_audit"`
}

// EventsConfig configures the generation event log. An empty path disables it.
type EventsConfig struct {
	Path string `yaml:"path"`
}

// MonitoringConfig represents logging and metrics configuration.
type MonitoringConfig struct {
	Logging MonitoringLogging `yaml:"logging"`
	Metrics MonitoringMetrics `yaml:"metrics"`
}

type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

type MonitoringMetrics struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// Load resolves the configuration: .env files, the optional YAML file at path
// (with ${VAR} expansion), environment overrides, defaults and validation.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if cfg.Version != "" && cfg.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
		}
	}

	applyEnvOverrides(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// IncrementalWindow is the freshness window of incrementally revalidated routes.
func (g GenerationConfig) IncrementalWindow() time.Duration {
	return time.Duration(g.RevalidateSeconds) * time.Second
}

// DefaultTTL is the cache window for cacheable fetches without an explicit window.
func (g GenerationConfig) DefaultTTL() time.Duration {
	return time.Duration(g.DefaultTTLSeconds) * time.Second
}

// RefreshTimeoutDuration bounds a detached background refresh.
func (c CacheConfig) RefreshTimeoutDuration() time.Duration {
	return mustDuration(c.RefreshTimeout)
}

// WarmEvery returns the cache warm interval, zero when warming is disabled.
func (c CacheConfig) WarmEvery() time.Duration {
	return mustDuration(c.WarmInterval)
}

func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(s.ShutdownTimeout)
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, _ := time.ParseDuration(raw)
	return d
}
