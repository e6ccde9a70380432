// Package revalidate drops cached content on demand. Invalidation is delegated
// to the response cache; NATS only fans the request out to other instances.
package revalidate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/fetchcache"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/queries"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// Invalidator is the response cache.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) (int, error)
	Purge(ctx context.Context) error
}

// StaticResetter drops the static home snapshot.
type StaticResetter interface {
	ResetStatic()
}

// Publisher fans a request out to other instances.
type Publisher interface {
	Publish(ctx context.Context, req Request) error
}

// Outcome reports an applied request.
type Outcome struct {
	RunID   string  `json:"run_id"`
	Request Request `json:"request"`
	// Removed counts dropped cache entries; it is zero for a full purge.
	Removed     int  `json:"removed"`
	Broadcasted bool `json:"broadcasted"`
}

// Service applies revalidation requests.
type Service struct {
	cache     Invalidator
	static    StaticResetter
	events    eventstore.Store
	publisher Publisher
	logger    *slog.Logger
	recorder  metrics.Recorder
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = metrics.OrNoop(r) }
}

// WithEventStore records every applied request.
func WithEventStore(store eventstore.Store) Option {
	return func(s *Service) { s.events = store }
}

// WithPublisher broadcasts locally received requests.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New creates a Service.
func New(cache Invalidator, static StaticResetter, opts ...Option) *Service {
	s := &Service{
		cache:    cache,
		static:   static,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revalidate applies req locally and broadcasts it. A broadcast failure is
// logged; the local invalidation still stands.
func (s *Service) Revalidate(ctx context.Context, req Request) (Outcome, error) {
	out, err := s.Apply(ctx, req)
	if err != nil || s.publisher == nil || req.Source == eventstore.SourceBroadcast {
		return out, err
	}
	if err := s.publisher.Publish(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "Revalidation broadcast failed", logfields.Slug(req.Slug), logfields.Error(err))
		return out, nil
	}
	out.Broadcasted = true
	return out, nil
}

// Apply invalidates locally. A slug drops its page entries and the slug
// list; the home slug or all also resets the static snapshot.
func (s *Service) Apply(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	out := Outcome{RunID: uuid.NewString(), Request: req}

	if req.All {
		if err := s.cache.Purge(ctx); err != nil {
			return out, ferrors.WrapError(err, ferrors.CategoryCache, "purge response cache").Build()
		}
	} else {
		removed, err := s.cache.Invalidate(ctx,
			fetchcache.TagSlug(req.Slug),
			fetchcache.TagOperation(queries.OpGetAllPages))
		if err != nil {
			return out, ferrors.WrapError(err, ferrors.CategoryCache, "invalidate response cache").
				WithContext("slug", req.Slug).
				Build()
		}
		out.Removed = removed
	}
	if (req.All || req.Slug == site.HomeSlug) && s.static != nil {
		s.static.ResetStatic()
	}

	s.recorder.IncRevalidation(req.Scope())
	s.logger.InfoContext(ctx, "Revalidated",
		logfields.Slug(req.Slug),
		slog.Bool("all", req.All),
		slog.String("source", req.Source),
		logfields.Count(out.Removed))
	s.record(ctx, out)
	return out, nil
}

func (s *Service) record(ctx context.Context, out Outcome) {
	if s.events == nil {
		return
	}
	e, err := eventstore.NewRevalidated(out.RunID, eventstore.RevalidatedData{
		All:     out.Request.All,
		Slug:    out.Request.Slug,
		Source:  out.Request.Source,
		Removed: out.Removed,
	})
	if err == nil {
		err = eventstore.AppendEvent(ctx, s.events, e)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to record event", logfields.Error(err))
	}
}
