// Package fetchcache decorates a contentful.Executor with the response cache.
//
// The cache directive of each request decides the path taken:
//
//	no-store  -> always fetched, never read or written (preview)
//	ttl       -> fresh hit, or stale hit plus a detached background refresh
//	forever   -> hit until explicitly invalidated
//
// Freshness is judged by the directive of the request reading the entry, not
// the one that wrote it, so static and incremental callers can share entries.
// Misses and refreshes for the same key are coalesced with singleflight and
// run detached from any single caller. Failed fetches are never cached; a
// failed refresh keeps the stale entry.
package fetchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/pagebuilder/internal/cache"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
)

const (
	DefaultTTL            = time.Hour
	DefaultRefreshTimeout = 30 * time.Second
)

// Cache is a caching contentful.Executor.
type Cache struct {
	next           contentful.Executor
	store          cache.Store
	defaultTTL     time.Duration
	refreshTimeout time.Duration
	group          singleflight.Group
	refreshes      sync.WaitGroup
	now            func() time.Time
	logger         *slog.Logger
	recorder       metrics.Recorder
}

type Option func(*Cache)

func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Cache) { c.recorder = metrics.OrNoop(r) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(next contentful.Executor, store cache.Store, opts ...Option) *Cache {
	c := &Cache{
		next:           next,
		store:          store,
		defaultTTL:     DefaultTTL,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
		logger:         slog.Default(),
		recorder:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute serves req from the cache when its directive allows it.
func (c *Cache) Execute(ctx context.Context, req contentful.Request) (json.RawMessage, error) {
	directive := contentful.DirectiveFor(req.Preview, req.Revalidate, c.defaultTTL)
	if !directive.Cacheable() {
		c.recorder.IncCacheResult(metrics.CacheBypass)
		return c.next.Execute(ctx, req)
	}

	key := Key(req)
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "Response cache read failed, fetching",
			logfields.Operation(req.Query.Name), logfields.CacheKey(key), logfields.Error(err))
	}

	if entry != nil {
		if entry.FreshWithin(c.now(), freshness(directive)) {
			c.recorder.IncCacheResult(metrics.CacheHit)
			c.logger.DebugContext(ctx, "Response cache hit",
				logfields.Operation(req.Query.Name), logfields.CacheResult(string(metrics.CacheHit)))
			return entry.Data, nil
		}
		c.recorder.IncCacheResult(metrics.CacheStale)
		c.refreshInBackground(ctx, req, key, directive)
		return entry.Data, nil
	}

	c.recorder.IncCacheResult(metrics.CacheMiss)
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.fetchAndStore(fctx, req, key, directive)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// freshness is the window a request with directive accepts.
func freshness(directive contentful.CacheDirective) time.Duration {
	if directive.Mode == contentful.CacheTTL {
		return directive.TTL
	}
	return 0
}

func (c *Cache) fetchAndStore(ctx context.Context, req contentful.Request, key string, directive contentful.CacheDirective) (json.RawMessage, error) {
	data, err := c.next.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	entry := &cache.Entry{
		Key:      key,
		Data:     data,
		StoredAt: c.now(),
		Tags:     Tags(req),
	}
	if directive.Mode == contentful.CacheTTL {
		entry.TTL = directive.TTL
	}
	if err := c.store.Set(ctx, entry); err != nil {
		c.logger.WarnContext(ctx, "Response cache write failed",
			logfields.Operation(req.Query.Name), logfields.CacheKey(key), logfields.Error(err))
	}
	return data, nil
}

// refreshInBackground re-fetches a stale entry detached from the caller's
// cancellation but bounded by the refresh timeout.
func (c *Cache) refreshInBackground(ctx context.Context, req contentful.Request, key string, directive contentful.CacheDirective) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetchAndStore(bg, req, key, directive)
	})
	c.refreshes.Add(1)
	go func() {
		defer c.refreshes.Done()
		defer cancel()
		select {
		case res := <-ch:
			if res.Err != nil {
				c.logger.Warn("Background refresh failed, keeping stale entry",
					logfields.Operation(req.Query.Name), logfields.CacheKey(key), logfields.Error(res.Err))
			}
		case <-bg.Done():
			c.logger.Warn("Background refresh timed out",
				logfields.Operation(req.Query.Name), logfields.CacheKey(key))
		}
	}()
}

// Wait blocks until every background refresh started so far has finished.
func (c *Cache) Wait() {
	c.refreshes.Wait()
}

// Invalidate drops every entry carrying one of tags.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) (int, error) {
	return c.store.DeleteTagged(ctx, tags...)
}

// Purge drops every entry.
func (c *Cache) Purge(ctx context.Context) error {
	return c.store.Purge(ctx)
}

// Key derives the cache key from the request identity: mode, operation,
// document and canonical variables. encoding/json sorts map keys, which makes
// the variable encoding canonical.
func Key(req contentful.Request) string {
	h := sha256.New()
	mode := "published"
	if req.Preview {
		mode = "preview"
	}
	vars, _ := json.Marshal(req.Variables)
	for _, part := range [][]byte{[]byte(mode), []byte(req.Query.Name), []byte(req.Query.Text), vars} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TagOperation tags every entry produced by the named query.
func TagOperation(name string) string { return "op:" + name }

// TagSlug tags entries fetched for one page slug.
func TagSlug(slug string) string { return "slug:" + slug }

// Tags returns the invalidation tags of req.
func Tags(req contentful.Request) []string {
	tags := []string{TagOperation(req.Query.Name)}
	if slug, ok := req.Variables["slug"].(string); ok {
		tags = append(tags, TagSlug(slug))
	}
	return tags
}
