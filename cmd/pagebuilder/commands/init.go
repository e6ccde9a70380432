package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = DefaultConfigFile
	}
	g.Logger.Info("Initializing configuration", "path", path, "force", i.Force)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Configuration file created at %s\n", path)
	_, _ = fmt.Fprintln(g.Out, "Set CONTENTFUL_ACCESS_TOKEN (and CONTENTFUL_PREVIEW_ACCESS_TOKEN for draft mode) before running 'pagebuilder serve'.")
	return nil
}
