// Package pages resolves routable pages and site chrome from the content API.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/queries"
)

// ErrNotFound reports that no document matched.
var ErrNotFound = errors.New("not found")

// Mode selects the token and freshness of a resolution.
type Mode struct {
	Preview    bool
	Revalidate contentful.Revalidate
}

// Resolver maps slugs to pages. It is safe for concurrent use.
type Resolver struct {
	exec   contentful.Executor
	logger *slog.Logger
}

func NewResolver(exec contentful.Executor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{exec: exec, logger: logger}
}

// ValidateSlug checks the canonical slug form: leading slash, no trailing
// slash except for the root, no empty segments and no characters that would
// let the slug escape the path when used as a redirect target.
func ValidateSlug(slug string) error {
	switch {
	case slug == "/":
		return nil
	case !strings.HasPrefix(slug, "/"):
		return ferrors.ValidationError("slug must start with '/'").WithContext("slug", slug).Build()
	case strings.HasSuffix(slug, "/"):
		return ferrors.ValidationError("slug must not end with '/'").WithContext("slug", slug).Build()
	case strings.Contains(slug, "//"):
		return ferrors.ValidationError("slug must not contain empty segments").WithContext("slug", slug).Build()
	case strings.ContainsFunc(slug, unsafeSlugRune):
		return ferrors.ValidationError("slug contains a forbidden character").WithContext("slug", slug).Build()
	}
	return nil
}

// unsafeSlugRune rejects backslashes, which browsers treat as '/', the query
// and fragment delimiters and control characters.
func unsafeSlugRune(r rune) bool {
	return r == '\\' || r == '?' || r == '#' || r < 0x20 || r == 0x7f
}

type pageBySlugData struct {
	PageCollection *struct {
		Total int             `json:"total"`
		Items []*content.Page `json:"items"`
	} `json:"pageCollection"`
}

// Lookup returns the page whose slug equals slug. It reports ErrNotFound when
// nothing matches and passes every lower-level error through.
func (r *Resolver) Lookup(ctx context.Context, slug string, mode Mode) (*content.Page, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	raw, err := r.exec.Execute(ctx, contentful.Request{
		Query:      queries.GetPageBySlug,
		Variables:  map[string]any{"slug": slug},
		Preview:    mode.Preview,
		Revalidate: mode.Revalidate,
	})
	if err != nil {
		return nil, err
	}

	var data pageBySlugData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDecode, "decode page response").
			WithContext("slug", slug).
			Build()
	}
	if data.PageCollection == nil || len(data.PageCollection.Items) == 0 || data.PageCollection.Items[0] == nil {
		return nil, ErrNotFound
	}
	if data.PageCollection.Total > 1 {
		r.logger.WarnContext(ctx, "Slug matches several pages, using the first",
			logfields.Slug(slug), logfields.Count(data.PageCollection.Total))
	}

	page := data.PageCollection.Items[0]
	if page.Slug != slug {
		r.logger.WarnContext(ctx, "Content API returned a page for a different slug",
			logfields.Slug(slug), slog.String("returned_slug", page.Slug))
		return nil, ErrNotFound
	}
	return page, nil
}

// ResolveBySlug is Lookup with errors swallowed: any failure yields absent and
// is logged.
func (r *Resolver) ResolveBySlug(ctx context.Context, slug string, mode Mode) (*content.Page, bool) {
	page, err := r.Lookup(ctx, slug, mode)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.ErrorContext(ctx, "Page resolution failed",
				logfields.Slug(slug), logfields.Preview(mode.Preview), logfields.Error(err))
		}
		return nil, false
	}
	return page, true
}

type allPagesData struct {
	PageCollection *content.Collection[*struct {
		Slug string `json:"slug"`
	}] `json:"pageCollection"`
}

// AllSlugs enumerates every published page slug in source order, walking
// pagination until total is reached. Pages without a slug are skipped.
func (r *Resolver) AllSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	for skip := 0; ; {
		raw, err := r.exec.Execute(ctx, contentful.Request{
			Query:     queries.GetAllPages,
			Variables: map[string]any{"skip": skip, "limit": queries.PageSlugPageSize},
		})
		if err != nil {
			return nil, err
		}
		var data allPagesData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryDecode, "decode page list response").Build()
		}
		if data.PageCollection == nil {
			return slugs, nil
		}
		for _, item := range data.PageCollection.Items {
			if item != nil && item.Slug != "" {
				slugs = append(slugs, item.Slug)
			}
		}
		skip += len(data.PageCollection.Items)
		if len(data.PageCollection.Items) == 0 || skip >= data.PageCollection.Total {
			return slugs, nil
		}
	}
}

// ResolveAllSlugs is AllSlugs with errors swallowed: failure yields an empty list.
func (r *Resolver) ResolveAllSlugs(ctx context.Context) []string {
	slugs, err := r.AllSlugs(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Slug enumeration failed", logfields.Error(err))
		return []string{}
	}
	if slugs == nil {
		return []string{}
	}
	return slugs
}
