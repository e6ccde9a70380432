package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// SlugsCmd implements the 'slugs' command.
type SlugsCmd struct {
	JSON    bool `help:"Print JSON instead of one slug per line"`
	Targets bool `help:"Print the route segments generated at build time instead of raw slugs"`
}

func (s *SlugsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := cfg.Contentful.RequireCredentials(false); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx, cfg, g.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			g.Logger.Warn("Failed to release resources", logfields.Error(cerr))
		}
	}()

	if s.Targets {
		targets := rt.site.GenerationTargets(ctx)
		if s.JSON {
			return writeJSON(g, targets)
		}
		for _, t := range targets {
			_, _ = fmt.Fprintln(g.Out, t.Slug())
		}
		return nil
	}

	slugs, err := rt.resolver.AllSlugs(ctx)
	if err != nil {
		return err
	}
	if s.JSON {
		if slugs == nil {
			slugs = []string{}
		}
		return writeJSON(g, slugs)
	}
	for _, slug := range slugs {
		_, _ = fmt.Fprintln(g.Out, slug)
	}
	return nil
}

func writeJSON(g *Global, v any) error {
	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
