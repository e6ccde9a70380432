package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	NoClean     bool   `name:"no-clean" help:"Keep existing files in the output directory"`
	NoAudit     bool   `name:"no-audit" help:"Skip the broken link audit"`
	StrictLinks bool   `name:"strict-links" help:"Fail the build when the audit finds broken links"`
	Concurrency int    `short:"j" help:"Routes generated in parallel" default:"4"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := cfg.Contentful.RequireCredentials(false); err != nil {
		return err
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
			logger.Warn("Failed to release resources", logfields.Error(cerr))
		}
	}()

	req := build.Request{
		OutputDir:   cfg.Output.Directory,
		Clean:       cfg.Output.Clean && !b.NoClean,
		LinkAudit:   cfg.Output.LinkAudit && !b.NoAudit,
		StrictLinks: b.StrictLinks,
		Concurrency: b.Concurrency,
	}
	if b.Output != "" {
		req.OutputDir = b.Output
	}

	gen := build.New(rt.site, rt.templates,
		build.WithLogger(logger),
		build.WithRecorder(rt.recorder),
		build.WithEventStore(rt.events),
	)
	result, err := gen.Run(ctx, req)
	if err != nil {
		return err
	}
	printBuildSummary(g, result)
	if !result.Status.IsSuccess() {
		return ferrors.NewError(ferrors.CategoryInternal, "build did not complete").
			WithContext("status", string(result.Status)).
			Build()
	}
	return nil
}

func printBuildSummary(g *Global, r *build.Result) {
	_, _ = fmt.Fprintf(g.Out, "Build %s: %s\n", r.RunID, r.Status)
	_, _ = fmt.Fprintf(g.Out, "  Output:    %s\n", r.OutputPath)
	_, _ = fmt.Fprintf(g.Out, "  Routes:    %d (%d not found, %d failed)\n", len(r.Routes), r.NotFound, r.Failed)
	if r.Audit != nil {
		_, _ = fmt.Fprintf(g.Out, "  Links:     %d checked, %d broken\n", r.Audit.Links, len(r.Audit.Broken))
		for _, bl := range r.Audit.Broken {
			_, _ = fmt.Fprintf(g.Out, "    %s -> %s\n", bl.Source, bl.URL)
		}
	}
	_, _ = fmt.Fprintf(g.Out, "  Duration:  %s\n", r.Duration.Round(time.Millisecond))
}
