package config

// Defaults mirror the behaviour of the hosted site this service replaces.
const (
	DefaultEnvironment       = "master"
	DefaultGraphQLURL        = "https://graphql.contentful.com"
	DefaultRevalidateSeconds = 7 * 24 * 60 * 60
	DefaultTTLSeconds        = 60 * 60
	DefaultRequestsPerSecond = 50
	DefaultBurst             = 10
	DefaultPort              = 3000
	DefaultOutputDir         = "./out"
	DefaultBucket            = "pagebuilder-content"
	DefaultBroadcastSubject  = "pagebuilder.revalidate"
	DefaultRefreshTimeout    = "30s"
	DefaultShutdownTimeout   = "10s"
	DefaultMetricsPath       = "/metrics"
	DefaultSiteTitle         = "Site"
)

func applyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = DefaultSiteTitle
	}

	c := &cfg.Contentful
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.GraphQLURL == "" {
		c.GraphQLURL = DefaultGraphQLURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}

	if cfg.Generation.RevalidateSeconds == 0 {
		cfg.Generation.RevalidateSeconds = DefaultRevalidateSeconds
	}
	if cfg.Generation.DefaultTTLSeconds == 0 {
		cfg.Generation.DefaultTTLSeconds = DefaultTTLSeconds
	}

	backend, err := NormalizeCacheBackend(string(cfg.Cache.Backend))
	if err != nil {
		return err
	}
	cfg.Cache.Backend = backend
	if cfg.Cache.Bucket == "" {
		cfg.Cache.Bucket = DefaultBucket
	}
	if cfg.Cache.BroadcastTopic == "" {
		cfg.Cache.BroadcastTopic = DefaultBroadcastSubject
	}
	if cfg.Cache.RefreshTimeout == "" {
		cfg.Cache.RefreshTimeout = DefaultRefreshTimeout
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
		cfg.Output.Clean = true
	}

	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	return nil
}
