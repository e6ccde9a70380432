package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/cache"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	"git.home.luguber.info/inful/pagebuilder/internal/queries"
)

// countingExecutor answers with a payload that changes on every call.
type countingExecutor struct {
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
}

func (e *countingExecutor) Execute(_ context.Context, req contentful.Request) (json.RawMessage, error) {
	n := e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.fail.Load() {
		return nil, errors.New("upstream down")
	}
	return json.RawMessage(fmt.Sprintf(`{"call":%d,"preview":%t}`, n, req.Preview)), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func pageRequest(slug string, preview bool, r contentful.Revalidate) contentful.Request {
	return contentful.Request{
		Query:      queries.GetPageBySlug,
		Variables:  map[string]any{"slug": slug},
		Preview:    preview,
		Revalidate: r,
	}
}

func TestPreviewBypassesCache(t *testing.T) {
	exec := &countingExecutor{}
	store := cache.NewMemoryStore()
	c := New(exec, store)
	ctx := context.Background()

	_, err := c.Execute(ctx, pageRequest("/about", false, contentful.Revalidate{}))
	require.NoError(t, err)

	for range 2 {
		data, err := c.Execute(ctx, pageRequest("/about", true, contentful.Revalidate{}))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"preview":true`, "preview never sees the published entry")
	}
	assert.EqualValues(t, 3, exec.calls.Load())

	size, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "preview responses are never written")
}

func TestFreshHitAndStaleWhileRevalidate(t *testing.T) {
	exec := &countingExecutor{}
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(exec, cache.NewMemoryStore(), WithClock(clk.Now))
	ctx := context.Background()
	req := pageRequest("/about", false, contentful.RevalidateAfter(time.Hour))

	first, err := c.Execute(ctx, req)
	require.NoError(t, err)
	second, err := c.Execute(ctx, req)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.EqualValues(t, 1, exec.calls.Load())

	clk.Advance(2 * time.Hour)
	stale, err := c.Execute(ctx, req)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(stale), "stale content is served immediately")
	c.Wait()
	assert.EqualValues(t, 2, exec.calls.Load(), "a background refresh ran")

	refreshed, err := c.Execute(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, string(refreshed), `"call":2`)
}

func TestFailedRefreshKeepsStaleEntry(t *testing.T) {
	exec := &countingExecutor{}
	clk := &clock{now: time.Now()}
	c := New(exec, cache.NewMemoryStore(), WithClock(clk.Now))
	ctx := context.Background()
	req := pageRequest("/about", false, contentful.Revalidate{})

	first, err := c.Execute(ctx, req)
	require.NoError(t, err)

	exec.fail.Store(true)
	clk.Advance(DefaultTTL + time.Second)
	got, err := c.Execute(ctx, req)
	require.NoError(t, err)
	c.Wait()
	assert.JSONEq(t, string(first), string(got))

	got, err = c.Execute(ctx, req)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(got))
}

func TestForeverEntriesNeverGoStale(t *testing.T) {
	exec := &countingExecutor{}
	clk := &clock{now: time.Now()}
	c := New(exec, cache.NewMemoryStore(), WithClock(clk.Now))
	ctx := context.Background()
	req := pageRequest("/", false, contentful.RevalidateNever())

	_, err := c.Execute(ctx, req)
	require.NoError(t, err)
	clk.Advance(365 * 24 * time.Hour)
	_, err = c.Execute(ctx, req)
	require.NoError(t, err)
	c.Wait()
	assert.EqualValues(t, 1, exec.calls.Load())
}

func TestFreshnessFollowsTheReadingRequest(t *testing.T) {
	exec := &countingExecutor{}
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(exec, cache.NewMemoryStore(), WithClock(clk.Now))
	ctx := context.Background()
	week := 7 * 24 * time.Hour
	nav := func(r contentful.Revalidate) contentful.Request {
		return contentful.Request{Query: queries.GetNavigation, Revalidate: r}
	}

	_, err := c.Execute(ctx, nav(contentful.RevalidateNever()))
	require.NoError(t, err)

	clk.Advance(4 * week)
	_, err = c.Execute(ctx, nav(contentful.RevalidateNever()))
	require.NoError(t, err)
	assert.EqualValues(t, 1, exec.calls.Load(), "a static reader accepts any age")

	_, err = c.Execute(ctx, nav(contentful.RevalidateAfter(week)))
	require.NoError(t, err)
	c.Wait()
	assert.EqualValues(t, 2, exec.calls.Load(), "an incremental reader refreshes an entry older than its window")
}

// gatedExecutor blocks until released, failing if its own context ends first.
type gatedExecutor struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (e *gatedExecutor) Execute(ctx context.Context, _ contentful.Request) (json.RawMessage, error) {
	if e.calls.Add(1) == 1 {
		close(e.started)
	}
	select {
	case <-e.release:
		return json.RawMessage(`{"ok":true}`), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCancelledCallerDoesNotFailCoalescedMiss(t *testing.T) {
	exec := &gatedExecutor{started: make(chan struct{}), release: make(chan struct{})}
	c := New(exec, cache.NewMemoryStore())
	req := pageRequest("/about", false, contentful.Revalidate{})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Execute(leaderCtx, req)
		leaderErr <- err
	}()
	<-exec.started

	type outcome struct {
		data json.RawMessage
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		data, err := c.Execute(context.Background(), req)
		follower <- outcome{data, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(exec.release)

	got := <-follower
	require.NoError(t, got.err)
	assert.JSONEq(t, `{"ok":true}`, string(got.data))
	assert.EqualValues(t, 1, exec.calls.Load())

	_, err := c.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, exec.calls.Load(), "the shared fetch was cached")
}

func TestErrorsAreNotCached(t *testing.T) {
	exec := &countingExecutor{}
	exec.fail.Store(true)
	store := cache.NewMemoryStore()
	c := New(exec, store)
	ctx := context.Background()
	req := pageRequest("/about", false, contentful.Revalidate{})

	_, err := c.Execute(ctx, req)
	require.Error(t, err)
	size, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	exec.fail.Store(false)
	_, err = c.Execute(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 2, exec.calls.Load())
}

func TestConcurrentMissesAreCoalesced(t *testing.T) {
	exec := &countingExecutor{delay: 50 * time.Millisecond}
	c := New(exec, cache.NewMemoryStore())
	req := pageRequest("/about", false, contentful.Revalidate{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Execute(context.Background(), req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, exec.calls.Load())
}

func TestInvalidateBySlug(t *testing.T) {
	exec := &countingExecutor{}
	c := New(exec, cache.NewMemoryStore())
	ctx := context.Background()

	for _, slug := range []string{"/about", "/contact"} {
		_, err := c.Execute(ctx, pageRequest(slug, false, contentful.Revalidate{}))
		require.NoError(t, err)
	}
	n, err := c.Invalidate(ctx, TagSlug("/about"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.Execute(ctx, pageRequest("/contact", false, contentful.Revalidate{}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, exec.calls.Load())
	_, err = c.Execute(ctx, pageRequest("/about", false, contentful.Revalidate{}))
	require.NoError(t, err)
	assert.EqualValues(t, 3, exec.calls.Load())

	require.NoError(t, c.Purge(ctx))
	_, err = c.Execute(ctx, pageRequest("/contact", false, contentful.Revalidate{}))
	require.NoError(t, err)
	assert.EqualValues(t, 4, exec.calls.Load())
}

func TestKeyIsCanonical(t *testing.T) {
	a := contentful.Request{Query: queries.GetAllPages, Variables: map[string]any{"skip": 0, "limit": 100}}
	b := contentful.Request{Query: queries.GetAllPages, Variables: map[string]any{"limit": 100, "skip": 0}}
	assert.Equal(t, Key(a), Key(b))

	b.Preview = true
	assert.NotEqual(t, Key(a), Key(b))
	assert.NotEqual(t, Key(pageRequest("/a", false, contentful.Revalidate{})), Key(pageRequest("/b", false, contentful.Revalidate{})))
	assert.Equal(t, []string{"op:GetPageBySlug", "slug:/a"}, Tags(pageRequest("/a", false, contentful.Revalidate{})))
}
