// Package cache stores content API responses for the fetch cache.
//
// Two backends exist: an in-process MemoryStore and a NATS JetStream key-value
// store shared between instances. Entries record the window they were written
// with; readers may judge freshness by their own window. Stores never expire
// anything on their own.
package cache

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"stored_at"`
	// TTL is the freshness window; zero means the entry never goes stale.
	TTL  time.Duration `json:"ttl"`
	Tags []string      `json:"tags,omitempty"`
}

// Fresh reports whether the entry is inside its own freshness window at now.
func (e *Entry) Fresh(now time.Time) bool {
	return e.FreshWithin(now, e.TTL)
}

// FreshWithin reports whether the entry is younger than ttl at now. A
// non-positive ttl never goes stale.
func (e *Entry) FreshWithin(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < ttl
}

// HasTag reports whether the entry carries tag.
func (e *Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// Store is a response cache backend. Get returns (nil, nil) for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	// DeleteTagged removes every entry carrying any of tags and returns how many were removed.
	DeleteTagged(ctx context.Context, tags ...string) (int, error)
	// Purge removes every entry.
	Purge(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}

func matchesAny(e *Entry, tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}
