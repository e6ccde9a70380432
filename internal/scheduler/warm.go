package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// Router is route assembly as used by the warm sweep.
type Router interface {
	GenerationTargets(ctx context.Context) []site.RouteParams
	Resolve(ctx context.Context, segments []string, preview bool) *site.Result
}

// WarmResult summarizes one sweep.
type WarmResult struct {
	RunID    string
	Slugs    int
	Failed   int
	Duration time.Duration
}

// Warmer re-resolves every enumerated route through the incremental path so
// cache entries are refreshed before visitors hit them.
type Warmer struct {
	router Router
	events eventstore.Store
	logger *slog.Logger
}

// NewWarmer creates a Warmer. events may be nil.
func NewWarmer(router Router, events eventstore.Store, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{router: router, events: events, logger: logger}
}

// Run performs one sweep. Routes are resolved one after another so a sweep
// never bursts past the content API rate limit.
func (w *Warmer) Run(ctx context.Context) WarmResult {
	start := time.Now()
	result := WarmResult{RunID: uuid.NewString()}

	for _, target := range w.router.GenerationTargets(ctx) {
		if ctx.Err() != nil {
			break
		}
		res := w.router.Resolve(ctx, target.Segments, false)
		result.Slugs++
		if res.Err != nil {
			result.Failed++
			w.logger.WarnContext(ctx, "Cache warm failed for route",
				logfields.Slug(res.Slug),
				logfields.Error(res.Err))
		}
	}
	result.Duration = time.Since(start)

	w.logger.InfoContext(ctx, "Cache warm complete",
		logfields.BuildID(result.RunID),
		logfields.Count(result.Slugs),
		slog.Int("failed", result.Failed),
		logfields.Duration(result.Duration))

	if w.events != nil {
		e, err := eventstore.NewCacheWarmed(result.RunID, eventstore.CacheWarmedData{
			Slugs:      result.Slugs,
			Failed:     result.Failed,
			DurationMS: result.Duration.Milliseconds(),
		})
		if err == nil {
			err = eventstore.AppendEvent(ctx, w.events, e)
		}
		if err != nil {
			w.logger.WarnContext(ctx, "Failed to record event", logfields.Error(err))
		}
	}
	return result
}
