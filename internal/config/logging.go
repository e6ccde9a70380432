package config

import (
	"log/slog"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug": LogLevelDebug,
	"info":  LogLevelInfo,
	"warn":  LogLevelWarn,
	"error": LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// SlogLevel converts the configured level for slog.HandlerOptions.
func (l LogLevel) SlogLevel() slog.Level {
	switch NormalizeLogLevel(string(l)) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

// CacheBackend selects where cached content responses live.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendNATS   CacheBackend = "nats"
)

var cacheBackendNormalizer = normalization.NewNormalizer(map[string]CacheBackend{
	"memory": CacheBackendMemory,
	"nats":   CacheBackendNATS,
}, CacheBackendMemory)

// NormalizeCacheBackend returns the backend for raw or an error listing valid options.
func NormalizeCacheBackend(raw string) (CacheBackend, error) {
	return cacheBackendNormalizer.NormalizeWithError(raw)
}
