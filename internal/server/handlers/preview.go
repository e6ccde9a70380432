package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/pages"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// PreviewCookie marks a browser as being in draft mode.
const PreviewCookie = "pagebuilder_preview"

// PreviewHandlers enters and leaves draft mode.
type PreviewHandlers struct {
	secret       string
	token        string
	logger       *slog.Logger
	errorAdapter *errors.HTTPErrorAdapter
}

// NewPreviewHandlers creates draft mode handlers. An empty secret disables
// draft mode.
func NewPreviewHandlers(secret string, logger *slog.Logger) *PreviewHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &PreviewHandlers{secret: secret, logger: logger, errorAdapter: errors.NewHTTPErrorAdapter(logger)}
	if secret != "" {
		h.token = previewToken(secret)
	}
	return h
}

// previewToken derives the cookie value from the secret so the secret itself
// never reaches the browser.
func previewToken(secret string) string {
	sum := sha256.Sum256([]byte("pagebuilder-preview:" + secret))
	return hex.EncodeToString(sum[:])
}

// IsPreview reports whether r carries a valid draft mode cookie.
func (h *PreviewHandlers) IsPreview(r *http.Request) bool {
	if h == nil || h.token == "" {
		return false
	}
	c, err := r.Cookie(PreviewCookie)
	if err != nil {
		return false
	}
	return secretsEqual(h.token, c.Value)
}

// HandlePreview checks ?secret=, sets the draft mode cookie and redirects to
// ?slug= (default "/"). The page itself decides whether the slug exists.
func (h *PreviewHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.errorAdapter, http.MethodGet) {
		return
	}
	if h.secret == "" {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ConfigError("draft mode is not configured").Build())
		return
	}
	q := r.URL.Query()
	if !secretsEqual(h.secret, q.Get("secret")) {
		h.errorAdapter.WriteErrorResponse(w, r, errors.AuthError("invalid preview secret").Build())
		return
	}
	slug := q.Get("slug")
	if slug == "" {
		slug = site.HomeSlug
	}
	if err := pages.ValidateSlug(slug); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     PreviewCookie,
		Value:    h.token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", site.CacheControlNoStore)
	h.logger.InfoContext(r.Context(), "Draft mode enabled", logfields.Slug(slug))
	http.Redirect(w, r, slug, http.StatusTemporaryRedirect)
}

// HandleExitPreview clears the draft mode cookie and redirects to ?slug= or "/".
func (h *PreviewHandlers) HandleExitPreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.errorAdapter, http.MethodGet) {
		return
	}
	slug := r.URL.Query().Get("slug")
	if pages.ValidateSlug(slug) != nil {
		slug = site.HomeSlug
	}
	http.SetCookie(w, &http.Cookie{
		Name:     PreviewCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", site.CacheControlNoStore)
	http.Redirect(w, r, slug, http.StatusTemporaryRedirect)
}
