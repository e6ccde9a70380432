// Package logfields holds the canonical slog field names used across PageBuilder.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names; dashboards and log queries depend on these staying stable.
const (
	KeySlug        = "slug"
	KeyOperation   = "operation"
	KeyPreview     = "preview"
	KeyRevalidate  = "revalidate"
	KeyCacheResult = "cache_result"
	KeyCacheKey    = "cache_key"
	KeyBlockKind   = "block_kind"
	KeyBlockID     = "block_id"
	KeyStrategy    = "strategy"
	KeyOutcome     = "outcome"
	KeyStatus      = "status"
	KeyDurationMS  = "duration_ms"
	KeyVariables   = "variables"
	KeyCount       = "count"
	KeyPath        = "path"
	KeyMethod      = "method"
	KeyRequestID   = "request_id"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
	KeyBuildID     = "build_id"
	KeyError       = "error"
)

func Slug(s string) slog.Attr          { return slog.String(KeySlug, s) }
func Operation(op string) slog.Attr    { return slog.String(KeyOperation, op) }
func Preview(p bool) slog.Attr         { return slog.Bool(KeyPreview, p) }
func Revalidate(v string) slog.Attr    { return slog.String(KeyRevalidate, v) }
func CacheResult(r string) slog.Attr   { return slog.String(KeyCacheResult, r) }
func CacheKey(k string) slog.Attr      { return slog.String(KeyCacheKey, k) }
func BlockKind(k string) slog.Attr     { return slog.String(KeyBlockKind, k) }
func BlockID(id string) slog.Attr      { return slog.String(KeyBlockID, id) }
func Strategy(s string) slog.Attr      { return slog.String(KeyStrategy, s) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }

// Variables logs GraphQL variables; callers must never pass credentials here.
func Variables(v map[string]any) slog.Attr { return slog.Any(KeyVariables, v) }

// Duration reports d in fractional milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
