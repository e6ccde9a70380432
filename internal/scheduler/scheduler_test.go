package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

type fakeRouter struct {
	targets  []site.RouteParams
	failing  string
	resolved atomic.Int32
	previews atomic.Int32
}

func (f *fakeRouter) GenerationTargets(context.Context) []site.RouteParams { return f.targets }

func (f *fakeRouter) Resolve(_ context.Context, segments []string, preview bool) *site.Result {
	f.resolved.Add(1)
	if preview {
		f.previews.Add(1)
	}
	slug := site.RouteKey(segments)
	res := &site.Result{Slug: slug, State: site.StateFound}
	if slug == f.failing {
		res.State = site.StateNotFound
		res.Err = errors.New("upstream 502")
	}
	return res
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func TestWarmerRun(t *testing.T) {
	router := &fakeRouter{
		targets: []site.RouteParams{{Segments: []string{"about"}}, {Segments: []string{"contact"}}},
		failing: "/contact",
	}
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	result := NewWarmer(router, store, discard()).Run(context.Background())
	assert.Equal(t, 2, result.Slugs)
	assert.Equal(t, 1, result.Failed)
	assert.NotEmpty(t, result.RunID)
	assert.Zero(t, router.previews.Load())

	events, err := store.GetByRunID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventstore.TypeCacheWarmed, events[0].Type())
}

func TestWarmerStopsOnCancel(t *testing.T) {
	router := &fakeRouter{targets: []site.RouteParams{{Segments: []string{"a"}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewWarmer(router, nil, discard()).Run(ctx)
	assert.Zero(t, result.Slugs)
	assert.Zero(t, router.resolved.Load())
}

func TestScheduleWarm(t *testing.T) {
	router := &fakeRouter{targets: []site.RouteParams{{Segments: []string{"about"}}}}
	s, err := New(discard())
	require.NoError(t, err)

	_, err = s.ScheduleWarm(context.Background(), 0, NewWarmer(router, nil, discard()))
	require.Error(t, err)

	id, err := s.ScheduleWarm(context.Background(), 20*time.Millisecond, NewWarmer(router, nil, discard()))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	assert.Eventually(t, func() bool { return router.resolved.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}
