package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pagebuilder/internal/blocks"
	"git.home.luguber.info/inful/pagebuilder/internal/cache"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/fetchcache"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/pages"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

// runtime holds the components shared by serve and build.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prom.Registry
	recorder metrics.Recorder

	conn      *nats.Conn
	store     cache.Store
	cache     *fetchcache.Cache
	resolver  *pages.Resolver
	site      *site.Site
	templates *templates.Renderer
	events    eventstore.Store
}

// newRuntime wires the content pipeline for cfg. Callers must Close it.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.recorder = metrics.NoopRecorder{}
	if !cfg.Monitoring.Metrics.Disabled {
		rt.registry = prom.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.recorder = metrics.NewPrometheusRecorder(rt.registry)
	}

	if cfg.Cache.Backend == config.CacheBackendNATS || cfg.Cache.Broadcast {
		rt.conn, err = nats.Connect(cfg.Cache.NATSURL,
			nats.Name("pagebuilder"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, derr error) {
				if derr != nil {
					logger.Warn("NATS disconnected", slog.String("error", derr.Error()))
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
			}),
		)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
				WithContext("url", cfg.Cache.NATSURL).
				Build()
		}
	}

	switch cfg.Cache.Backend {
	case config.CacheBackendNATS:
		rt.store, err = cache.NewNATSStore(ctx, rt.conn, cfg.Cache.Bucket, logger)
		if err != nil {
			return nil, err
		}
	default:
		rt.store = cache.NewMemoryStore()
	}

	client := contentful.New(cfg.Contentful,
		contentful.WithLogger(logger),
		contentful.WithRecorder(rt.recorder),
	)
	rt.cache = fetchcache.New(client, rt.store,
		fetchcache.WithDefaultTTL(cfg.Generation.DefaultTTL()),
		fetchcache.WithRefreshTimeout(cfg.Cache.RefreshTimeoutDuration()),
		fetchcache.WithLogger(logger),
		fetchcache.WithRecorder(rt.recorder),
	)
	rt.resolver = pages.NewResolver(rt.cache, logger)
	dispatcher := blocks.New(blocks.WithLogger(logger), blocks.WithRecorder(rt.recorder))
	rt.site = site.New(rt.resolver, dispatcher, cfg.Site, cfg.Generation.IncrementalWindow(),
		site.WithLogger(logger),
		site.WithRecorder(rt.recorder),
	)

	rt.templates, err = templates.New(cfg.Server.TemplatesDir, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Events.Path != "" {
		events, eerr := eventstore.NewSQLiteStore(cfg.Events.Path)
		if eerr != nil {
			return nil, eerr
		}
		rt.events = events
	}
	return rt, nil
}

// metricsHandler serves the runtime registry, nil when metrics are disabled.
func (rt *runtime) metricsHandler() http.Handler {
	if rt.registry == nil {
		return nil
	}
	return metrics.HTTPHandler(rt.registry)
}

// Close waits for background refreshes and releases every connection.
func (rt *runtime) Close() error {
	var errs []error
	if rt.cache != nil {
		rt.cache.Wait()
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.events != nil {
		errs = append(errs, rt.events.Close())
	}
	if rt.conn != nil {
		if err := rt.conn.Drain(); err != nil {
			rt.conn.Close()
		}
	}
	return errors.Join(errs...)
}
