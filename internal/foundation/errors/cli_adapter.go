package errors

import (
	"fmt"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool) *CLIErrorAdapter {
	return &CLIErrorAdapter{verbose: verbose}
}

// ExitCodeFor determines the process exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	c, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch c.Category() {
	case CategoryValidation:
		return 2
	case CategoryAuth:
		return 5
	case CategoryConfig:
		return 7
	case CategoryNetwork, CategoryRemote, CategoryDecode:
		return 8
	case CategoryInternal:
		return 10
	case CategoryRender, CategoryFileSystem:
		return 11
	default:
		return 1
	}
}

// FormatError formats an error for display on stderr.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s", c.Message())
	if c.Cause() != nil {
		fmt.Fprintf(&b, ": %v", c.Cause())
	}
	if a.verbose && len(c.Context()) > 0 {
		fmt.Fprintf(&b, "\n  category: %s", c.Category())
		for k, v := range c.Context() {
			fmt.Fprintf(&b, "\n  %s: %v", k, v)
		}
	}
	if c.Category() == CategoryConfig {
		b.WriteString("\nCheck your configuration file and CONTENTFUL_* environment variables.")
	}
	return b.String()
}
