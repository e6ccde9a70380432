package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
	Kind  string `help:"Only show runs of this kind (build, revalidate, warm)"`
	JSON  bool   `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	switch h.Kind {
	case "", eventstore.KindBuild, eventstore.KindRevalidate, eventstore.KindWarm:
	default:
		return ferrors.ValidationError("unknown run kind").WithContext("kind", h.Kind).Build()
	}
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Events.Path == "" {
		return ferrors.ConfigError("event log disabled: set events.path to record history").Build()
	}

	store, err := eventstore.NewSQLiteStore(cfg.Events.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			g.Logger.Warn("Failed to close event log", logfields.Error(cerr))
		}
	}()

	ctx, stop := signalContext()
	defer stop()

	projection := eventstore.NewHistoryProjection(store, 0)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}
	runs := filterRuns(projection.History(), h.Kind, h.Limit)
	if h.JSON {
		return writeJSON(g, runs)
	}
	return printHistory(g, runs)
}

func filterRuns(runs []eventstore.RunSummary, kind string, limit int) []eventstore.RunSummary {
	out := make([]eventstore.RunSummary, 0, len(runs))
	for _, r := range runs {
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func printHistory(g *Global, runs []eventstore.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(g.Out, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tKIND\tSTATUS\tDURATION\tDETAIL")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Kind,
			r.Status,
			r.Duration.Round(time.Millisecond),
			runDetail(r))
	}
	return tw.Flush()
}

func runDetail(r eventstore.RunSummary) string {
	if r.ErrorMessage != "" {
		return fmt.Sprintf("%s: %s", r.ErrorStage, r.ErrorMessage)
	}
	switch r.Kind {
	case eventstore.KindRevalidate:
		target := r.Slug
		if r.All {
			target = "all"
		}
		return fmt.Sprintf("%s via %s (%d removed)", target, r.Source, r.Removed)
	case eventstore.KindWarm:
		return fmt.Sprintf("%d routes, %d failed", r.Routes, r.Failed)
	default:
		return fmt.Sprintf("%d routes, %d not found, %d failed, %d broken links", r.Routes, r.NotFound, r.Failed, r.BrokenLinks)
	}
}
