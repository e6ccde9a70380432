package templates

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/blocks"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

var siteCfg = config.SiteConfig{Title: "Dry Eyes", Description: "Relief", BaseURL: "https://example.com/"}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func foundResult() *site.Result {
	return &site.Result{
		Slug:     "/about",
		State:    site.StateFound,
		Strategy: site.StrategyIncremental,
		Meta:     site.Metadata{Title: "About", Description: "About - Dry Eyes"},
		Blocks: []blocks.Rendered{
			{Key: "c1", Kind: content.KindCta, HTML: `<section class="cta">Go</section>`},
			{Key: "empty", Kind: content.KindCarousel},
		},
		Navigation: &content.Navigation{Links: []content.NavLink{{Text: "Home", URL: "/"}}},
		Footer:     &content.Footer{CopyrightText: "(c) 2025 Dry Eyes"},
	}
}

func TestRenderFoundPage(t *testing.T) {
	r, err := New("", quiet())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, r.Render(&out, foundResult(), siteCfg, false))
	html := out.String()

	assert.Contains(t, html, "<title>About</title>")
	assert.Contains(t, html, `<meta name="description" content="About - Dry Eyes">`)
	assert.Contains(t, html, `<link rel="canonical" href="https://example.com/about">`)
	assert.Contains(t, html, `<div class="block block-Cta" data-block-key="c1"><section class="cta">Go</section></div>`)
	assert.NotContains(t, html, `data-block-key="empty"`, "empty fragments are omitted")
	assert.Contains(t, html, `<li><a href="/">Home</a></li>`)
	assert.Contains(t, html, "(c) 2025 Dry Eyes")
	assert.NotContains(t, html, "preview-banner")
	assert.NotContains(t, html, "noindex")
}

func TestRenderNotFoundAndPreview(t *testing.T) {
	r, err := New("", quiet())
	require.NoError(t, err)

	var out bytes.Buffer
	res := &site.Result{Slug: "/missing", State: site.StateNotFound, Meta: site.NotFoundMetadata()}
	require.NoError(t, r.Render(&out, res, siteCfg, true))
	html := out.String()

	assert.Contains(t, html, "<title>Page Not Found</title>")
	assert.Contains(t, html, "<h1>Page Not Found</h1>")
	assert.NotContains(t, html, "canonical")
	assert.Contains(t, html, "preview-banner")
	assert.Contains(t, html, `content="noindex"`)
	assert.Contains(t, html, "&copy;")
}

func TestOverridesAndReload(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "footer.html")
	require.NoError(t, os.WriteFile(override, []byte(`{{define "footer"}}<footer>custom v1</footer>{{end}}`), 0o600))

	r, err := New(dir, quiet())
	require.NoError(t, err)
	render := func() string {
		var out bytes.Buffer
		require.NoError(t, r.Render(&out, foundResult(), siteCfg, false))
		return out.String()
	}
	assert.Contains(t, render(), "custom v1")

	require.NoError(t, os.WriteFile(override, []byte(`{{define "footer"}}{{.Broken`), 0o600))
	assert.Error(t, r.Reload())
	assert.Contains(t, render(), "custom v1", "a failed reload keeps the previous templates")

	require.NoError(t, os.WriteFile(override, []byte(`{{define "footer"}}<footer>custom v2</footer>{{end}}`), 0o600))
	require.NoError(t, r.Reload())
	assert.Contains(t, render(), "custom v2")
}

func TestNewFailsOnBrokenOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(`{{if}}`), 0o600))
	_, err := New(dir, quiet())
	assert.Error(t, err)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "footer.html")
	require.NoError(t, os.WriteFile(override, []byte(`{{define "footer"}}<footer>before</footer>{{end}}`), 0o600))
	r, err := New(dir, quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 4)
	require.NoError(t, r.Watch(ctx, 20*time.Millisecond, func(err error) { reloaded <- err }))

	require.NoError(t, os.WriteFile(override, []byte(`{{define "footer"}}<footer>after</footer>{{end}}`), 0o600))
	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("templates were not reloaded")
	}

	var out bytes.Buffer
	require.NoError(t, r.Render(&out, foundResult(), siteCfg, false))
	assert.True(t, strings.Contains(out.String(), "after"))
}

func TestWatchRequiresDirectory(t *testing.T) {
	r, err := New("", quiet())
	require.NoError(t, err)
	assert.Error(t, r.Watch(context.Background(), 0, nil))
}
