package revalidate

import (
	"encoding/json"
	"sort"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/pages"
)

// DefaultLocale is the locale read from localized webhook fields.
const DefaultLocale = "en-US"

// Request is one invalidation: a single slug, or everything.
type Request struct {
	All    bool   `json:"all,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Source string `json:"source,omitempty"`
}

// Scope is the metric label of the request.
func (r Request) Scope() string {
	if r.All {
		return "all"
	}
	return "slug"
}

// Validate checks that exactly one target is named and the slug is canonical.
func (r Request) Validate() error {
	if r.All {
		return nil
	}
	if r.Slug == "" {
		return ferrors.ValidationError("revalidation requires a slug or all").Build()
	}
	return pages.ValidateSlug(r.Slug)
}

type body struct {
	All    bool            `json:"all"`
	Slug   string          `json:"slug"`
	Sys    json.RawMessage `json:"sys"`
	Fields struct {
		Slug json.RawMessage `json:"slug"`
	} `json:"fields"`
}

// ParseRequest reads a revalidation body. It accepts {"slug": "/about"},
// {"all": true}, and Contentful entry webhooks. A webhook for an entry
// without a slug (navigation, footer, a shared block) revalidates everything
// because the entry may appear on any page.
func ParseRequest(data []byte) (Request, error) {
	var b body
	if err := json.Unmarshal(data, &b); err != nil {
		return Request{}, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid revalidation body").Build()
	}

	if len(b.Sys) > 0 {
		req := Request{Source: eventstore.SourceWebhook}
		req.Slug = webhookSlug(b.Fields.Slug)
		req.All = req.Slug == ""
		return req, req.Validate()
	}

	req := Request{All: b.All, Slug: b.Slug, Source: eventstore.SourceAPI}
	if req.All {
		req.Slug = ""
	}
	return req, req.Validate()
}

// webhookSlug reads a slug field that is either a plain string or a
// localized map. The default locale wins, otherwise the first locale in
// sorted order.
func webhookSlug(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if json.Unmarshal(raw, &plain) == nil {
		return plain
	}
	var localized map[string]string
	if json.Unmarshal(raw, &localized) != nil || len(localized) == 0 {
		return ""
	}
	if s, ok := localized[DefaultLocale]; ok {
		return s
	}
	locales := make([]string, 0, len(localized))
	for l := range localized {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return localized[locales[0]]
}
