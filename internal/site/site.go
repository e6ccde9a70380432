// Package site assembles routes: it maps URL segments to a generation
// strategy, resolves the document and chrome, dispatches blocks and derives
// metadata. Every failure inside a route ends in the NotFound state.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagebuilder/internal/blocks"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/pages"
)

// PageSource is the page resolution service as seen by route assembly.
type PageSource interface {
	Lookup(ctx context.Context, slug string, mode pages.Mode) (*content.Page, error)
	ResolveAllSlugs(ctx context.Context) []string
	Navigation(ctx context.Context, mode pages.Mode) (*content.Navigation, error)
	Footer(ctx context.Context, mode pages.Mode) (*content.Footer, error)
}

// Dispatcher renders a block list.
type Dispatcher interface {
	Dispatch(ctx context.Context, blocks []content.Block) []blocks.Rendered
}

// State is the terminal state of a route resolution.
type State string

const (
	StateFound    State = "found"
	StateNotFound State = "not_found"
)

// Result is one assembled route.
type Result struct {
	Slug     string
	Strategy Strategy
	State    State
	// Err is set when NotFound was reached through a failure rather than absence.
	Err        error
	Page       *content.Page
	Blocks     []blocks.Rendered
	Meta       Metadata
	Navigation *content.Navigation
	Footer     *content.Footer
	// CacheControl is the response header value for this result.
	CacheControl string
	ResolvedAt   time.Time
}

// Found reports whether the route has a document.
func (r *Result) Found() bool { return r.State == StateFound }

// Site assembles routes. It is safe for concurrent use.
type Site struct {
	source     PageSource
	dispatcher Dispatcher
	cfg        config.SiteConfig
	window     time.Duration
	logger     *slog.Logger
	recorder   metrics.Recorder

	mu        sync.RWMutex
	home      *Result
	attempted bool
}

type Option func(*Site)

func WithLogger(l *slog.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Site) { s.recorder = metrics.OrNoop(r) }
}

// New creates a Site. window is the incremental revalidation window.
func New(source PageSource, dispatcher Dispatcher, cfg config.SiteConfig, window time.Duration, opts ...Option) *Site {
	s := &Site{
		source:     source,
		dispatcher: dispatcher,
		cfg:        cfg,
		window:     window,
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is the incremental revalidation window.
func (s *Site) Window() time.Duration { return s.window }

// Config returns the site metadata configuration.
func (s *Site) Config() config.SiteConfig { return s.cfg }

// Resolve assembles the route for segments.
func (s *Site) Resolve(ctx context.Context, segments []string, preview bool) (res *Result) {
	start := time.Now()
	res = &Result{Strategy: StrategyPreview, State: StateNotFound}
	if !preview {
		res.Strategy = StrategyIncremental
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = s.failed(res.Slug, res.Strategy, fmt.Errorf("route panic: %v", rec))
		}
		if res.ResolvedAt.IsZero() {
			res.ResolvedAt = time.Now()
		}
		res.CacheControl = cacheControl(res, s.window)
		outcome := string(res.State)
		if res.Err != nil {
			outcome = "error"
		}
		s.recorder.ObserveRoute(string(res.Strategy), outcome, time.Since(start))
		s.logger.DebugContext(ctx, "Route resolved",
			logfields.Slug(res.Slug),
			logfields.Strategy(string(res.Strategy)),
			logfields.Outcome(outcome),
			logfields.Duration(time.Since(start)))
	}()

	slug := RouteKey(segments)
	strategy := StrategyFor(slug, preview)
	res.Slug, res.Strategy = slug, strategy

	if strategy == StrategyStatic {
		if cached := s.staticHome(); cached != nil {
			return cached
		}
		res = s.assemble(ctx, slug, strategy)
		res.ResolvedAt = time.Now()
		s.storeHome(res)
		return res
	}
	return s.assemble(ctx, slug, strategy)
}

func (s *Site) modeFor(strategy Strategy) pages.Mode {
	switch strategy {
	case StrategyPreview:
		return pages.Mode{Preview: true}
	case StrategyStatic:
		return pages.Mode{Revalidate: contentful.RevalidateNever()}
	default:
		return pages.Mode{Revalidate: contentful.RevalidateAfter(s.window)}
	}
}

// assemble resolves page and chrome concurrently. Chrome failures degrade to
// no chrome; a page failure ends the route.
func (s *Site) assemble(ctx context.Context, slug string, strategy Strategy) *Result {
	mode := s.modeFor(strategy)
	var (
		page    *content.Page
		pageErr error
		nav     *content.Navigation
		footer  *content.Footer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := contained(func() { page, pageErr = s.source.Lookup(gctx, slug, mode) }); err != nil {
			page, pageErr = nil, err
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if perr := contained(func() { nav, err = s.source.Navigation(gctx, mode) }); perr != nil {
			nav, err = nil, perr
		}
		if err != nil && !errors.Is(err, pages.ErrNotFound) {
			s.logger.WarnContext(ctx, "Navigation unavailable", logfields.Slug(slug), logfields.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if perr := contained(func() { footer, err = s.source.Footer(gctx, mode) }); perr != nil {
			footer, err = nil, perr
		}
		if err != nil && !errors.Is(err, pages.ErrNotFound) {
			s.logger.WarnContext(ctx, "Footer unavailable", logfields.Slug(slug), logfields.Error(err))
		}
		return nil
	})
	_ = g.Wait()

	if pageErr != nil {
		if errors.Is(pageErr, pages.ErrNotFound) {
			s.logger.InfoContext(ctx, "Page not found", logfields.Slug(slug))
			res := &Result{Slug: slug, Strategy: strategy, State: StateNotFound, Meta: s.notFoundMeta(slug)}
			res.Navigation, res.Footer = nav, footer
			return res
		}
		res := s.failed(slug, strategy, pageErr)
		res.Navigation, res.Footer = nav, footer
		return res
	}

	rendered := s.dispatcher.Dispatch(ctx, page.Blocks)
	meta := PageMetadata(s.cfg, page)
	if slug == HomeSlug {
		meta = HomeMetadata(s.cfg, true)
	}
	return &Result{
		Slug:       slug,
		Strategy:   strategy,
		State:      StateFound,
		Page:       page,
		Blocks:     rendered,
		Meta:       meta,
		Navigation: nav,
		Footer:     footer,
	}
}

// contained runs fn and reports a panic as an error. Goroutines started by
// assemble need it because the recover in Resolve only covers its own stack.
func contained(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("route panic: %v", rec)
		}
	}()
	fn()
	return nil
}

func (s *Site) notFoundMeta(slug string) Metadata {
	if slug == HomeSlug {
		return HomeMetadata(s.cfg, false)
	}
	return NotFoundMetadata()
}

func (s *Site) failed(slug string, strategy Strategy, err error) *Result {
	s.logger.Error("Route resolution failed", logfields.Slug(slug), logfields.Error(err))
	return &Result{Slug: slug, Strategy: strategy, State: StateNotFound, Err: err, Meta: ErrorMetadata(s.cfg)}
}

func cacheControl(res *Result, window time.Duration) string {
	if !res.Found() {
		return CacheControlNoStore
	}
	return res.Strategy.CacheControl(window)
}

// staticHome returns a copy of the held home snapshot, if any.
func (s *Site) staticHome() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.home == nil {
		return nil
	}
	cp := *s.home
	return &cp
}

// storeHome keeps a copy of found home results only; an absent home is
// retried on the next request.
func (s *Site) storeHome(res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted = true
	if res.Found() {
		cp := *res
		s.home = &cp
	}
}

// WarmStatic resolves the home route once, at startup or build.
func (s *Site) WarmStatic(ctx context.Context) *Result {
	return s.Resolve(ctx, nil, false)
}

// ResetStatic drops the home snapshot so the next request resolves it again.
func (s *Site) ResetStatic() {
	s.mu.Lock()
	s.home = nil
	s.mu.Unlock()
}

// Ready reports whether the home snapshot has been attempted.
func (s *Site) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempted
}
