// Package commands implements the pagebuilder CLI commands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
)

// DefaultConfigFile is written by init when no --config is given.
const DefaultConfigFile = "pagebuilder.yaml"

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path; without one the environment alone configures pagebuilder" env:"PAGEBUILDER_CONFIG" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogLevel  string           `name:"log-level" help:"Log level (debug, info, warn, error)" env:"PAGEBUILDER_LOG_LEVEL"`
	LogFormat string           `name:"log-format" help:"Log format (text, json)" env:"PAGEBUILDER_LOG_FORMAT"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" help:"Serve pages over HTTP with incremental regeneration and draft mode"`
	Build   BuildCmd   `cmd:"" help:"Generate the static site into the output directory"`
	Slugs   SlugsCmd   `cmd:"" help:"List every page slug known to the content repository"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent builds, revalidations and cache warm sweeps"`
	Info    VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing and sets up logging from the flags.
// Commands that load a configuration refine it with the configured values.
func (c *CLI) AfterApply(g *Global) error {
	if g.Out == nil {
		g.Out = os.Stdout
	}
	g.Logger = c.newLogger("", "")
	slog.SetDefault(g.Logger)
	return nil
}

// newLogger takes the level from --verbose, then --log-level, then the
// configuration, and the format from --log-format, then the configuration.
func (c *CLI) newLogger(cfgLevel config.LogLevel, cfgFormat config.LogFormat) *slog.Logger {
	level := config.NormalizeLogLevel(string(cfgLevel))
	if c.LogLevel != "" {
		level = config.NormalizeLogLevel(c.LogLevel)
	}
	slogLevel := level.SlogLevel()
	if c.Verbose {
		slogLevel = slog.LevelDebug
	}
	format := config.NormalizeLogFormat(string(cfgFormat))
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig loads the configuration and reapplies logging from it.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = c.newLogger(cfg.Monitoring.Logging.Level, cfg.Monitoring.Logging.Format)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
