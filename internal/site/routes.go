package site

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// HomeSlug is the route served by the static strategy.
const HomeSlug = "/"

// RouteParams identifies one generated route by its path segments.
type RouteParams struct {
	Segments []string `json:"segments"`
}

// Slug returns the route key of the params.
func (p RouteParams) Slug() string { return RouteKey(p.Segments) }

// RouteKey joins segments into a slug: "/" + segments joined by "/". No
// segments yields the home slug. Segments are NFC-normalized so visually equal
// URLs map to the same document.
func RouteKey(segments []string) string {
	if len(segments) == 0 {
		return HomeSlug
	}
	normalized := make([]string, len(segments))
	for i, s := range segments {
		normalized[i] = norm.NFC.String(s)
	}
	return "/" + strings.Join(normalized, "/")
}

// SegmentsFromPath splits a decoded URL path into route segments. A trailing
// slash is ignored; "/" has no segments.
func SegmentsFromPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// SegmentsFromSlug is SegmentsFromPath for canonical slugs.
func SegmentsFromSlug(slug string) []string {
	return SegmentsFromPath(slug)
}

// GenerationTargets enumerates every route the incremental strategy
// pre-generates: all known slugs except the home route, which is static.
// Enumeration failures yield no targets.
func (s *Site) GenerationTargets(ctx context.Context) []RouteParams {
	slugs := s.source.ResolveAllSlugs(ctx)
	targets := make([]RouteParams, 0, len(slugs))
	for _, slug := range slugs {
		if slug == HomeSlug {
			continue
		}
		targets = append(targets, RouteParams{Segments: SegmentsFromSlug(slug)})
	}
	s.recorder.SetGeneratedRoutes(len(targets))
	return targets
}
