package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables recognised by PageBuilder.
const (
	EnvSpaceID            = "CONTENTFUL_SPACE_ID"
	EnvAccessToken        = "CONTENTFUL_ACCESS_TOKEN"
	EnvPreviewAccessToken = "CONTENTFUL_PREVIEW_ACCESS_TOKEN"
	EnvEnvironment        = "CONTENTFUL_ENVIRONMENT"
	EnvGraphQLURL         = "CONTENTFUL_GRAPHQL_URL"
	EnvPreviewSecret      = "PAGEBUILDER_PREVIEW_SECRET"
	EnvRevalidateSecret   = "PAGEBUILDER_REVALIDATE_SECRET"
	EnvLogLevel           = "PAGEBUILDER_LOG_LEVEL"
)

// envFiles are tried in precedence order; godotenv never overrides variables
// that are already set, so earlier files win.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env files from the working directory if present.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", name, err)
		}
	}
}

// applyEnvOverrides lets the environment supply or override endpoint identity and secrets.
func applyEnvOverrides(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Contentful.SpaceID, EnvSpaceID)
	override(&cfg.Contentful.AccessToken, EnvAccessToken)
	override(&cfg.Contentful.PreviewAccessToken, EnvPreviewAccessToken)
	override(&cfg.Contentful.Environment, EnvEnvironment)
	override(&cfg.Contentful.GraphQLURL, EnvGraphQLURL)
	override(&cfg.Server.PreviewSecret, EnvPreviewSecret)
	override(&cfg.Server.RevalidateSecret, EnvRevalidateSecret)

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Monitoring.Logging.Level = LogLevel(v)
	}
}
