package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init writes an example configuration file. Credentials are left to the environment.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Version: CurrentVersion,
		Site: SiteConfig{
			Title:       "Dry Eyes",
			Description: "A modern solution for dry eye relief and care",
			BaseURL:     "https://example.com",
		},
		Contentful: ContentfulConfig{
			SpaceID:           "${CONTENTFUL_SPACE_ID}",
			Environment:       DefaultEnvironment,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Generation: GenerationConfig{
			RevalidateSeconds: DefaultRevalidateSeconds,
			DefaultTTLSeconds: DefaultTTLSeconds,
		},
		Cache: CacheConfig{
			Backend:        CacheBackendMemory,
			RefreshTimeout: DefaultRefreshTimeout,
			WarmInterval:   "6h",
		},
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Output: OutputConfig{Directory: DefaultOutputDir, Clean: true, LinkAudit: true},
		Events: EventsConfig{Path: "pagebuilder-events.db"},
		Monitoring: MonitoringConfig{
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
			Metrics: MonitoringMetrics{Path: DefaultMetricsPath},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	header := "# PageBuilder configuration.\n# Tokens come from CONTENTFUL_ACCESS_TOKEN and CONTENTFUL_PREVIEW_ACCESS_TOKEN.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
