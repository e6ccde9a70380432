package httpserver

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/server/handlers"
	smw "git.home.luguber.info/inful/pagebuilder/internal/server/middleware"
)

// Fixed API paths.
const (
	PathHealth      = "/healthz"
	PathReady       = "/readyz"
	PathRevalidate  = "/api/revalidate"
	PathPreview     = "/api/preview"
	PathExitPreview = "/api/exit-preview"
)

// Deps wires the handlers.
type Deps struct {
	Resolver    handlers.RouteResolver
	Renderer    handlers.PageRenderer
	Revalidator handlers.Revalidator
	Ready       func() bool

	// Metrics is served at MetricsPath; nil disables it.
	Metrics     http.Handler
	MetricsPath string

	PreviewSecret    string
	RevalidateSecret string

	Logger *slog.Logger
}

// NewHandler builds the full route table wrapped in the middleware chain.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	preview := handlers.NewPreviewHandlers(d.PreviewSecret, logger)
	monitoring := handlers.NewMonitoringHandlers(d.Ready, logger)
	revalidate := handlers.NewRevalidateHandlers(d.RevalidateSecret, d.Revalidator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc(PathHealth, monitoring.HandleHealth)
	mux.HandleFunc(PathReady, monitoring.HandleReady)
	mux.HandleFunc(PathRevalidate, revalidate.HandleRevalidate)
	mux.HandleFunc(PathPreview, preview.HandlePreview)
	mux.HandleFunc(PathExitPreview, preview.HandleExitPreview)
	if d.Metrics != nil && d.MetricsPath != "" {
		mux.Handle(d.MetricsPath, d.Metrics)
	}
	mux.Handle("/", handlers.NewPageHandlers(d.Resolver, d.Renderer, preview, logger))

	return smw.Chain(logger, errors.NewHTTPErrorAdapter(logger))(mux)
}
