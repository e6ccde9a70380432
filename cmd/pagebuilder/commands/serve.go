package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/revalidate"
	"git.home.luguber.info/inful/pagebuilder/internal/scheduler"
	"git.home.luguber.info/inful/pagebuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port int  `short:"p" help:"Port to listen on (overrides server.port)"`
	Warm bool `help:"Resolve every route once at startup" default:"true" negatable:""`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := cfg.Contentful.RequireCredentials(false); err != nil {
		return err
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}
	logger := g.Logger

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.Warn("Shutdown left resources open", logfields.Error(cerr))
		}
	}()

	opts := []revalidate.Option{
		revalidate.WithLogger(logger),
		revalidate.WithRecorder(rt.recorder),
		revalidate.WithEventStore(rt.events),
	}
	var broadcaster *revalidate.Broadcaster
	if cfg.Cache.Broadcast {
		broadcaster = revalidate.NewBroadcaster(rt.conn, cfg.Cache.BroadcastTopic, uuid.NewString(), logger)
		opts = append(opts, revalidate.WithPublisher(broadcaster))
	}
	revalidator := revalidate.New(rt.cache, rt.site, opts...)

	handler := httpserver.NewHandler(httpserver.Deps{
		Resolver:         rt.site,
		Renderer:         rt.templates,
		Revalidator:      revalidator,
		Ready:            rt.site.Ready,
		Metrics:          rt.metricsHandler(),
		MetricsPath:      cfg.Monitoring.Metrics.Path,
		PreviewSecret:    cfg.Server.PreviewSecret,
		RevalidateSecret: cfg.Server.RevalidateSecret,
		Logger:           logger,
	})
	srv := httpserver.New(fmt.Sprintf(":%d", cfg.Server.Port), handler, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		home := rt.site.WarmStatic(gctx)
		logger.Info("Static home snapshot ready", logfields.Outcome(string(home.State)))
		return nil
	})

	if broadcaster != nil {
		group.Go(func() error { return broadcaster.Listen(gctx, revalidator) })
	}

	if cfg.Server.WatchTemplates && cfg.Server.TemplatesDir != "" {
		err := rt.templates.Watch(gctx, templates.DefaultDebounce, func(rerr error) {
			if rerr != nil {
				logger.Error("Template reload failed", logfields.Error(rerr))
				return
			}
			logger.Info("Templates reloaded", logfields.Path(cfg.Server.TemplatesDir))
		})
		if err != nil {
			return err
		}
	}

	warmer := scheduler.NewWarmer(rt.site, rt.events, logger)
	if s.Warm {
		group.Go(func() error {
			warmer.Run(gctx)
			return nil
		})
	}
	if every := cfg.Cache.WarmEvery(); every > 0 {
		sched, err := scheduler.New(logger)
		if err != nil {
			return err
		}
		if _, err := sched.ScheduleWarm(gctx, every, warmer); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	logger.Info("Serving pages", slog.String("addr", srv.Addr()))
	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	stopErr := srv.Stop(shutdownCtx)
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Background task ended with error", logfields.Error(err))
	}
	return stopErr
}
