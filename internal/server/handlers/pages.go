package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// RouteResolver assembles routes.
type RouteResolver interface {
	Resolve(ctx context.Context, segments []string, preview bool) *site.Result
	Config() config.SiteConfig
}

// PageRenderer writes a complete document for an assembled route.
type PageRenderer interface {
	Render(w io.Writer, res *site.Result, cfg config.SiteConfig, preview bool) error
}

// PageHandlers serves every content route.
type PageHandlers struct {
	resolver RouteResolver
	renderer PageRenderer
	preview  *PreviewHandlers
	logger   *slog.Logger
}

// NewPageHandlers creates the page route. preview may be nil when draft mode
// is disabled.
func NewPageHandlers(resolver RouteResolver, renderer PageRenderer, preview *PreviewHandlers, logger *slog.Logger) *PageHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandlers{resolver: resolver, renderer: renderer, preview: preview, logger: logger}
}

// ServeHTTP resolves the request path and renders the page, or the not-found
// page with status 404.
func (h *PageHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	preview := h.preview.IsPreview(r)
	res := h.resolver.Resolve(r.Context(), site.SegmentsFromPath(r.URL.Path), preview)

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, res, h.resolver.Config(), preview); err != nil {
		h.logger.ErrorContext(r.Context(), "Page render failed", logfields.Slug(res.Slug), logfields.Error(err))
		w.Header().Set("Cache-Control", site.CacheControlNoStore)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Cache-Control", res.CacheControl)
	if preview {
		header.Set("X-Robots-Tag", "noindex")
	}
	status := http.StatusOK
	if !res.Found() {
		status = http.StatusNotFound
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "Failed writing page", logfields.Slug(res.Slug), logfields.Error(err))
	}
}
