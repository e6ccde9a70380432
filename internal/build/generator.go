package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/linkaudit"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// Output file names.
const (
	IndexFile    = "index.html"
	NotFoundFile = "404.html"
	RoutesFile   = "routes.json"
)

// Pipeline stages, as recorded on failure.
const (
	stagePrepare  = "prepare"
	stageRoutes   = "routes"
	stageNotFound = "not_found"
	stageManifest = "manifest"
	stageAudit    = "link_audit"
)

// Generator runs generation passes.
type Generator struct {
	router   Router
	renderer PageRenderer
	events   eventstore.Store
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

type Option func(*Generator)

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) { g.recorder = metrics.OrNoop(r) }
}

// WithEventStore records the pass in the event log.
func WithEventStore(s eventstore.Store) Option {
	return func(g *Generator) { g.events = s }
}

// New creates a Generator.
func New(router Router, renderer PageRenderer, opts ...Option) *Generator {
	g := &Generator{
		router:   router,
		renderer: renderer,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes a generation pass. Routes that resolve to NotFound are listed
// in routes.json but get no file, except the home route, which is always
// written.
func (g *Generator) Run(ctx context.Context, req Request) (*Result, error) {
	start := g.now()
	result := &Result{
		RunID:      uuid.NewString(),
		StartTime:  start,
		OutputPath: req.OutputDir,
	}
	log := g.logger.With(logfields.BuildID(result.RunID))

	finish := func(status Status, stage string, err error) (*Result, error) {
		result.Status = status
		result.EndTime = g.now()
		result.Duration = result.EndTime.Sub(start)
		g.recorder.ObserveBuildDuration(result.Duration)
		if err != nil {
			log.ErrorContext(ctx, "Generation failed", slog.String("stage", stage), logfields.Error(err))
			g.record(ctx, func() (*eventstore.BaseEvent, error) {
				return eventstore.NewGenerationFailed(result.RunID, stage, err)
			})
			return result, err
		}
		broken := 0
		if result.Audit != nil {
			broken = len(result.Audit.Broken)
		}
		log.InfoContext(ctx, "Generation complete",
			logfields.Count(len(result.Routes)),
			slog.Int("not_found", result.NotFound),
			slog.Int("failed", result.Failed),
			slog.Int("broken_links", broken),
			logfields.Duration(result.Duration))
		g.record(ctx, func() (*eventstore.BaseEvent, error) {
			return eventstore.NewGenerationCompleted(result.RunID, eventstore.GenerationCompletedData{
				Routes:      len(result.Routes),
				NotFound:    result.NotFound,
				Failed:      result.Failed,
				BrokenLinks: broken,
				DurationMS:  result.Duration.Milliseconds(),
			})
		})
		return result, nil
	}

	if req.OutputDir == "" {
		return finish(StatusFailed, stagePrepare, ferrors.ValidationError("output directory required").Build())
	}
	if err := prepareOutput(req.OutputDir, req.Clean); err != nil {
		return finish(StatusFailed, stagePrepare, err)
	}

	home := g.router.WarmStatic(ctx)
	targets := g.router.GenerationTargets(ctx)
	log.InfoContext(ctx, "Generating site",
		logfields.Path(req.OutputDir),
		logfields.Count(len(targets)+1))
	g.record(ctx, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewGenerationStarted(result.RunID, eventstore.GenerationStartedData{
			Output:  req.OutputDir,
			Targets: len(targets) + 1,
		})
	})

	outcomes := make([]RouteOutcome, len(targets)+1)
	if err := g.writeRoute(ctx, result.RunID, req.OutputDir, home, true, &outcomes[0]); err != nil {
		return finish(StatusFailed, stageRoutes, err)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(req.Concurrency, 1))
	for i, target := range targets {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			res := g.router.Resolve(egctx, target.Segments, false)
			return g.writeRoute(egctx, result.RunID, req.OutputDir, res, false, &outcomes[i+1])
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return finish(StatusCancelled, stageRoutes, err)
		}
		return finish(StatusFailed, stageRoutes, err)
	}
	result.Routes = outcomes
	for _, o := range outcomes {
		if o.State != site.StateFound {
			result.NotFound++
		}
		if o.Error != "" {
			result.Failed++
		}
	}

	notFound := &site.Result{
		Slug:       "/" + strings.TrimSuffix(NotFoundFile, ".html"),
		Strategy:   site.StrategyStatic,
		State:      site.StateNotFound,
		Meta:       site.NotFoundMetadata(),
		Navigation: home.Navigation,
		Footer:     home.Footer,
	}
	if err := g.writeDocument(filepath.Join(req.OutputDir, NotFoundFile), notFound); err != nil {
		return finish(StatusFailed, stageNotFound, err)
	}

	if err := writeManifest(filepath.Join(req.OutputDir, RoutesFile), g.now(), outcomes); err != nil {
		return finish(StatusFailed, stageManifest, err)
	}

	if req.LinkAudit {
		report, err := linkaudit.Audit(req.OutputDir, linkaudit.Options{BaseURL: g.router.Config().BaseURL})
		if err != nil {
			return finish(StatusFailed, stageAudit, err)
		}
		result.Audit = report
		for _, b := range report.Broken {
			log.WarnContext(ctx, "Broken internal link", logfields.Path(b.Source), slog.String("url", b.URL))
		}
		if req.StrictLinks && !report.OK() {
			return finish(StatusFailed, stageAudit, ferrors.ValidationError("broken internal links").
				WithContext("count", len(report.Broken)).
				Build())
		}
	}

	g.recorder.SetGeneratedRoutes(len(outcomes))
	return finish(StatusSuccess, "", nil)
}

// writeRoute renders res into its index.html and fills out. Route failures
// are recorded on the outcome; only write failures abort the pass.
func (g *Generator) writeRoute(ctx context.Context, runID, root string, res *site.Result, always bool, out *RouteOutcome) error {
	start := g.now()
	*out = RouteOutcome{
		Slug:         res.Slug,
		Segments:     site.SegmentsFromSlug(res.Slug),
		Strategy:     res.Strategy,
		State:        res.State,
		CacheControl: res.CacheControl,
	}
	if out.Segments == nil {
		out.Segments = []string{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	if res.Found() || always {
		path, err := routePath(root, out.Segments)
		if err != nil {
			out.Error = err.Error()
			g.logger.WarnContext(ctx, "Skipping route", logfields.Slug(res.Slug), logfields.Error(err))
			return nil
		}
		if err := g.writeDocument(path, res); err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out.File = filepath.ToSlash(rel)
	}

	g.record(ctx, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewRouteGenerated(runID, eventstore.RouteGeneratedData{
			Slug:       res.Slug,
			Strategy:   string(res.Strategy),
			Outcome:    string(res.State),
			DurationMS: g.now().Sub(start).Milliseconds(),
		})
	})
	return nil
}

func (g *Generator) writeDocument(path string, res *site.Result) error {
	var buf bytes.Buffer
	if err := g.renderer.Render(&buf, res, g.router.Config(), false); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "render route").
			WithContext("slug", res.Slug).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create route directory").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write route").
			WithContext("path", path).
			Build()
	}
	return nil
}

// record appends an event when an event store is configured. Event log
// failures never fail the pass.
func (g *Generator) record(ctx context.Context, build func() (*eventstore.BaseEvent, error)) {
	if g.events == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = eventstore.AppendEvent(ctx, g.events, e)
	}
	if err != nil {
		g.logger.WarnContext(ctx, "Failed to record event", logfields.Error(err))
	}
}

// routePath maps segments to <root>/<segments...>/index.html. Segments that
// would escape root are rejected.
func routePath(root string, segments []string) (string, error) {
	for _, s := range segments {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return "", ferrors.ValidationError("unsafe route segment").
				WithContext("segment", s).
				Build()
		}
	}
	return filepath.Join(append(append([]string{root}, segments...), IndexFile)...), nil
}

func prepareOutput(dir string, clean bool) error {
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "clean output directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			WithContext("path", dir).
			Build()
	}
	return nil
}

type manifest struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Routes      []RouteOutcome `json:"routes"`
}

func writeManifest(path string, at time.Time, routes []RouteOutcome) error {
	data, err := json.MarshalIndent(manifest{GeneratedAt: at, Routes: routes}, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode routes manifest").Build()
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write routes manifest").
			WithContext("path", path).
			Build()
	}
	return nil
}
