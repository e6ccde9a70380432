package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/revalidate"
	"git.home.luguber.info/inful/pagebuilder/internal/server/responses"
)

// RevalidateSecretHeader carries the revalidation secret.
const RevalidateSecretHeader = "X-Revalidate-Secret"

const maxRevalidateBody = 1 << 20

// Revalidator applies revalidation requests.
type Revalidator interface {
	Revalidate(ctx context.Context, req revalidate.Request) (revalidate.Outcome, error)
}

// RevalidateHandlers serves on-demand revalidation.
type RevalidateHandlers struct {
	secret       string
	revalidator  Revalidator
	errorAdapter *errors.HTTPErrorAdapter
}

// NewRevalidateHandlers creates revalidation handlers. An empty secret
// disables the endpoint.
func NewRevalidateHandlers(secret string, revalidator Revalidator, logger *slog.Logger) *RevalidateHandlers {
	return &RevalidateHandlers{
		secret:       secret,
		revalidator:  revalidator,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleRevalidate applies the revalidation named by the request body.
func (h *RevalidateHandlers) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.errorAdapter, http.MethodPost) {
		return
	}
	if h.secret == "" || h.revalidator == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ConfigError("revalidation is not configured").Build())
		return
	}
	supplied := r.Header.Get(RevalidateSecretHeader)
	if supplied == "" {
		supplied = r.URL.Query().Get("secret")
	}
	if !secretsEqual(h.secret, supplied) {
		h.errorAdapter.WriteErrorResponse(w, r, errors.AuthError("invalid revalidation secret").Build())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRevalidateBody))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryValidation, "failed to read revalidation body").Build())
		return
	}
	req, err := revalidate.ParseRequest(body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	out, err := h.revalidator.Revalidate(r.Context(), req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	resp := &responses.RevalidateResponse{
		Revalidated: true,
		RunID:       out.RunID,
		All:         out.Request.All,
		Slug:        out.Request.Slug,
		Removed:     out.Removed,
		Broadcasted: out.Broadcasted,
		Now:         time.Now().UTC(),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write revalidation response").Build())
	}
}
