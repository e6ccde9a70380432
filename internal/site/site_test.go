package site

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/blocks"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/pages"
)

const week = 7 * 24 * time.Hour

type fakeSource struct {
	mu       sync.Mutex
	pages    map[string]*content.Page
	slugs    []string
	failFor  map[string]error
	panicOn  string
	navPanic bool
	lookups  atomic.Int32
	modes    []pages.Mode
}

func (f *fakeSource) Lookup(_ context.Context, slug string, mode pages.Mode) (*content.Page, error) {
	f.lookups.Add(1)
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	if slug == f.panicOn {
		panic("decoder blew up")
	}
	if err := f.failFor[slug]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[slug]; ok {
		return p, nil
	}
	return nil, pages.ErrNotFound
}

func (f *fakeSource) ResolveAllSlugs(context.Context) []string { return f.slugs }

func (f *fakeSource) Navigation(context.Context, pages.Mode) (*content.Navigation, error) {
	if f.navPanic {
		panic("navigation decoder blew up")
	}
	return &content.Navigation{Title: "Main", Links: []content.NavLink{{Text: "Home", URL: "/"}}}, nil
}

func (f *fakeSource) Footer(context.Context, pages.Mode) (*content.Footer, error) {
	return nil, errors.New("footer query failed")
}

var siteCfg = config.SiteConfig{Title: "Dry Eyes", Description: "A modern solution for dry eye relief and care"}

func newSite(src *fakeSource) *Site {
	return New(src, blocks.New(blocks.WithLogger(discard())), siteCfg, week, WithLogger(discard()))
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func TestGenerationTargetsExcludeHome(t *testing.T) {
	s := newSite(&fakeSource{slugs: []string{"/", "/about", "/services/dry-eye"}})

	targets := s.GenerationTargets(context.Background())
	assert.Equal(t, []RouteParams{
		{Segments: []string{"about"}},
		{Segments: []string{"services", "dry-eye"}},
	}, targets)

	assert.Empty(t, newSite(&fakeSource{}).GenerationTargets(context.Background()))
}

func TestRouteKey(t *testing.T) {
	assert.Equal(t, "/", RouteKey(nil))
	assert.Equal(t, "/a/b", RouteKey([]string{"a", "b"}))
	// "e" + combining acute accent normalizes to the precomposed form.
	assert.Equal(t, "/caf\u00e9", RouteKey([]string{"cafe\u0301"}))
	assert.Equal(t, []string{"a", "b"}, SegmentsFromPath("/a/b/"))
	assert.Nil(t, SegmentsFromPath("/"))
	assert.Equal(t, "/about", RouteParams{Segments: []string{"about"}}.Slug())
}

func TestResolveFoundPage(t *testing.T) {
	src := &fakeSource{pages: map[string]*content.Page{
		"/about": {Title: "About", Slug: "/about", Blocks: []content.Block{
			&content.Cta{Sys: content.Sys{ID: "c1"}, CtaTitle: "Go"},
			&content.UnknownBlock{Typename: "Testimonial"},
			&content.HeroSection{Sys: content.Sys{ID: "h1"}},
		}},
	}}
	res := newSite(src).Resolve(context.Background(), []string{"about"}, false)

	require.True(t, res.Found())
	assert.Equal(t, StrategyIncremental, res.Strategy)
	assert.Equal(t, Metadata{Title: "About", Description: "About - Dry Eyes"}, res.Meta)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "c1", res.Blocks[0].Key)
	assert.Equal(t, "h1", res.Blocks[1].Key)
	assert.Equal(t, "public, max-age=0, s-maxage=604800, stale-while-revalidate", res.CacheControl)
	require.NotNil(t, res.Navigation)
	assert.Nil(t, res.Footer, "chrome failures degrade to no chrome")
	assert.False(t, src.modes[0].Preview)
}

func TestResolveNotFoundAndErrors(t *testing.T) {
	src := &fakeSource{
		failFor: map[string]error{"/broken": errors.New("content API returned 500")},
		panicOn: "/panics",
	}
	s := newSite(src)

	missing := s.Resolve(context.Background(), []string{"missing"}, false)
	assert.Equal(t, StateNotFound, missing.State)
	assert.NoError(t, missing.Err)
	assert.Equal(t, Metadata{Title: "Page Not Found"}, missing.Meta)
	assert.Equal(t, CacheControlNoStore, missing.CacheControl)

	broken := s.Resolve(context.Background(), []string{"broken"}, false)
	assert.Equal(t, StateNotFound, broken.State)
	assert.Error(t, broken.Err)
	assert.Equal(t, Metadata{Title: "Dry Eyes"}, broken.Meta)

	panicked := s.Resolve(context.Background(), []string{"panics"}, false)
	assert.Equal(t, StateNotFound, panicked.State)
	assert.ErrorContains(t, panicked.Err, "route panic")
	assert.Equal(t, "/panics", panicked.Slug)
}

func TestResolveChromePanicDegrades(t *testing.T) {
	src := &fakeSource{
		pages:    map[string]*content.Page{"/about": {Title: "About", Slug: "/about"}},
		navPanic: true,
	}
	s := newSite(src)

	res := s.Resolve(context.Background(), []string{"about"}, false)
	require.True(t, res.Found())
	assert.Nil(t, res.Navigation)
	assert.NoError(t, res.Err)
}

func TestResolvePreview(t *testing.T) {
	src := &fakeSource{pages: map[string]*content.Page{"/": {Title: "Home", Slug: "/"}}}
	s := newSite(src)

	res := s.Resolve(context.Background(), nil, true)
	require.True(t, res.Found())
	assert.Equal(t, StrategyPreview, res.Strategy)
	assert.Equal(t, CacheControlNoStore, res.CacheControl)
	assert.True(t, src.modes[0].Preview)

	// Preview resolution never populates the static snapshot.
	s.Resolve(context.Background(), nil, true)
	assert.EqualValues(t, 2, src.lookups.Load())
	assert.False(t, s.Ready())
}

func TestStaticHomeSnapshot(t *testing.T) {
	src := &fakeSource{pages: map[string]*content.Page{"/": {Title: "Welcome", Slug: "/"}}}
	s := newSite(src)
	assert.False(t, s.Ready())

	warm := s.WarmStatic(context.Background())
	require.True(t, warm.Found())
	assert.True(t, s.Ready())
	assert.Equal(t, StrategyStatic, warm.Strategy)
	assert.Equal(t, HomeMetadata(siteCfg, true), warm.Meta)
	assert.Equal(t, CacheControlStatic, warm.CacheControl)

	for range 3 {
		res := s.Resolve(context.Background(), nil, false)
		assert.True(t, res.Found())
		assert.Equal(t, warm.ResolvedAt, res.ResolvedAt)
	}
	assert.EqualValues(t, 1, src.lookups.Load(), "home is resolved once")

	s.ResetStatic()
	s.Resolve(context.Background(), []string{}, false)
	assert.EqualValues(t, 2, src.lookups.Load())
}

func TestMissingHomeIsRetried(t *testing.T) {
	src := &fakeSource{}
	s := newSite(src)

	res := s.WarmStatic(context.Background())
	assert.Equal(t, StateNotFound, res.State)
	assert.Equal(t, Metadata{Title: "Dry Eyes"}, res.Meta)
	assert.True(t, s.Ready())

	s.Resolve(context.Background(), nil, false)
	assert.EqualValues(t, 2, src.lookups.Load())
}

func TestStrategyCacheControl(t *testing.T) {
	assert.Equal(t, StrategyStatic, StrategyFor("/", false))
	assert.Equal(t, StrategyIncremental, StrategyFor("/about", false))
	assert.Equal(t, StrategyPreview, StrategyFor("/", true))
	assert.Equal(t, "public, max-age=0, s-maxage=60, stale-while-revalidate", StrategyIncremental.CacheControl(time.Minute))
	assert.Equal(t, CacheControlNoStore, StrategyPreview.CacheControl(week))
}
