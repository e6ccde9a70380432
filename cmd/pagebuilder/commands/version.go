package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global, _ *CLI) error {
	_, err := fmt.Fprintln(g.Out, version.String())
	return err
}
