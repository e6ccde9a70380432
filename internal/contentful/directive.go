package contentful

import (
	"fmt"
	"time"
)

// CacheMode is how a response may be cached.
type CacheMode int

const (
	// CacheNoStore responses are never read from or written to any cache.
	CacheNoStore CacheMode = iota
	// CacheTTL responses are fresh for TTL, then served stale while refreshing.
	CacheTTL
	// CacheForever responses never expire; only explicit revalidation drops them.
	CacheForever
)

func (m CacheMode) String() string {
	switch m {
	case CacheNoStore:
		return "no-store"
	case CacheTTL:
		return "ttl"
	case CacheForever:
		return "forever"
	default:
		return fmt.Sprintf("CacheMode(%d)", int(m))
	}
}

// Revalidate is the caller's freshness request. The zero value asks for the
// default window.
type Revalidate struct {
	never  bool
	window time.Duration
}

// RevalidateAfter caches for d. A non-positive d falls back to the default window.
func RevalidateAfter(d time.Duration) Revalidate { return Revalidate{window: d} }

// RevalidateNever caches with no expiry.
func RevalidateNever() Revalidate { return Revalidate{never: true} }

func (r Revalidate) String() string {
	switch {
	case r.never:
		return "false"
	case r.window > 0:
		return r.window.String()
	default:
		return "default"
	}
}

// CacheDirective is the caching policy computed for one request.
type CacheDirective struct {
	Mode CacheMode
	TTL  time.Duration
}

// Cacheable reports whether the response may enter a cache.
func (d CacheDirective) Cacheable() bool { return d.Mode != CacheNoStore }

// DirectiveFor computes the cache policy. Preview always wins: draft content is
// never cached regardless of the requested revalidation.
func DirectiveFor(preview bool, r Revalidate, defaultTTL time.Duration) CacheDirective {
	switch {
	case preview:
		return CacheDirective{Mode: CacheNoStore}
	case r.never:
		return CacheDirective{Mode: CacheForever}
	case r.window > 0:
		return CacheDirective{Mode: CacheTTL, TTL: r.window}
	default:
		return CacheDirective{Mode: CacheTTL, TTL: defaultTTL}
	}
}
