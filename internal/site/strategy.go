package site

import (
	"fmt"
	"time"
)

// Strategy is how a route is generated and cached.
type Strategy string

const (
	// StrategyStatic routes are resolved once and never revalidate on a timer.
	StrategyStatic Strategy = "static"
	// StrategyIncremental routes are served from cache and refreshed in the
	// background once their window elapses.
	StrategyIncremental Strategy = "incremental"
	// StrategyPreview routes show draft content and are never cached.
	StrategyPreview Strategy = "preview"
)

// Cache-Control values sent to shared caches in front of the server.
const (
	CacheControlStatic  = "public, max-age=0, s-maxage=31536000"
	CacheControlNoStore = "private, no-cache, no-store, max-age=0, must-revalidate"
)

// StrategyFor picks the strategy of a route.
func StrategyFor(slug string, preview bool) Strategy {
	switch {
	case preview:
		return StrategyPreview
	case slug == HomeSlug:
		return StrategyStatic
	default:
		return StrategyIncremental
	}
}

// CacheControl returns the response header value for a found route.
func (s Strategy) CacheControl(window time.Duration) string {
	switch s {
	case StrategyStatic:
		return CacheControlStatic
	case StrategyIncremental:
		return fmt.Sprintf("public, max-age=0, s-maxage=%d, stale-while-revalidate", int(window.Seconds()))
	default:
		return CacheControlNoStore
	}
}
