package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Validate checks structural invariants. Credentials are checked separately by
// RequireCredentials because commands such as `init` and `history` never fetch.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Generation.RevalidateSeconds < 0 {
		errs = append(errs, errors.New("generation.revalidate_seconds must not be negative"))
	}
	if cfg.Generation.DefaultTTLSeconds < 0 {
		errs = append(errs, errors.New("generation.default_ttl_seconds must not be negative"))
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", cfg.Server.Port))
	}
	if u, err := url.Parse(cfg.Contentful.GraphQLURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("contentful.graphql_url is not an absolute URL: %q", cfg.Contentful.GraphQLURL))
	}
	if cfg.Cache.Backend == CacheBackendNATS && cfg.Cache.NATSURL == "" {
		errs = append(errs, errors.New("cache.nats_url is required when cache.backend is nats"))
	}
	if cfg.Cache.Broadcast && cfg.Cache.NATSURL == "" {
		errs = append(errs, errors.New("cache.nats_url is required when cache.broadcast is enabled"))
	}
	for field, raw := range map[string]string{
		"cache.refresh_timeout":   cfg.Cache.RefreshTimeout,
		"cache.warm_interval":     cfg.Cache.WarmInterval,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", field, raw))
		}
	}
	if !strings.HasPrefix(cfg.Monitoring.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("monitoring.metrics.path must start with '/': %q", cfg.Monitoring.Metrics.Path))
	}
	return errors.Join(errs...)
}

// RequireCredentials reports a configuration error when the endpoint identity or
// the token selected by preview is absent.
func (c ContentfulConfig) RequireCredentials(preview bool) error {
	if c.SpaceID == "" {
		return ferrors.ConfigError(EnvSpaceID + " is not set").
			WithContext("variable", EnvSpaceID).
			Build()
	}
	name, token := EnvAccessToken, c.AccessToken
	if preview {
		name, token = EnvPreviewAccessToken, c.PreviewAccessToken
	}
	if token == "" {
		return ferrors.ConfigError(name + " is not set").
			WithContext("variable", name).
			WithContext("preview", preview).
			Build()
	}
	return nil
}

// Endpoint returns the GraphQL endpoint for the configured space and environment.
func (c ContentfulConfig) Endpoint() string {
	base := strings.TrimRight(c.GraphQLURL, "/")
	return fmt.Sprintf("%s/content/v1/spaces/%s/environments/%s",
		base, url.PathEscape(c.SpaceID), url.PathEscape(c.Environment))
}
