// Package templates renders assembled routes into complete HTML documents.
//
// The built-in layout is embedded; a templates directory may override any of
// its named templates ("head", "header", "footer", "page", "notfound").
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

//go:embed defaults/*.html
var defaults embed.FS

// PageView is the data every layout template receives.
type PageView struct {
	SiteTitle  string
	Meta       site.Metadata
	Canonical  string
	Preview    bool
	Blocks     []template.HTML
	Navigation *content.Navigation
	Footer     *content.Footer
	Year       int
}

// Renderer executes the layout. It is safe for concurrent use; Reload swaps
// the template set atomically.
type Renderer struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	tmpl *template.Template
}

// New parses the embedded layout plus any *.html overrides in dir (optional).
func New(dir string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{dir: dir, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir is the override directory, empty when only the embedded layout is used.
func (r *Renderer) Dir() string { return r.dir }

// Reload re-parses the layout. On failure the previous template set stays active.
func (r *Renderer) Reload() error {
	tmpl, err := template.New("layout").ParseFS(defaults, "defaults/*.html")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "parse embedded layout").Build()
	}
	if r.dir != "" {
		matches, err := filepath.Glob(filepath.Join(r.dir, "*.html"))
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "list template overrides").Build()
		}
		for _, path := range matches {
			src, err := os.ReadFile(path)
			if err != nil {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "read template override").
					WithContext("path", path).
					Build()
			}
			if _, err := tmpl.New(filepath.Base(path)).Parse(string(src)); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryRender, "parse template override").
					WithContext("path", path).
					Build()
			}
		}
	}
	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()
	return nil
}

// View builds the template data for res.
func View(res *site.Result, cfg config.SiteConfig, preview bool) (PageView, error) {
	view := PageView{
		SiteTitle:  cfg.Title,
		Meta:       res.Meta,
		Preview:    preview,
		Navigation: res.Navigation,
		Footer:     res.Footer,
		Year:       time.Now().Year(),
	}
	if cfg.BaseURL != "" && res.Found() {
		view.Canonical = strings.TrimRight(cfg.BaseURL, "/") + res.Slug
	}
	for _, b := range res.Blocks {
		if b.HTML == "" {
			continue
		}
		html, err := b.Wrap()
		if err != nil {
			return PageView{}, ferrors.WrapError(err, ferrors.CategoryRender, "wrap block").
				WithContext("block_id", b.Key).
				Build()
		}
		view.Blocks = append(view.Blocks, html)
	}
	return view, nil
}

// Render writes the document for res: the page layout when found, the
// not-found layout otherwise.
func (r *Renderer) Render(w io.Writer, res *site.Result, cfg config.SiteConfig, preview bool) error {
	view, err := View(res, cfg, preview)
	if err != nil {
		return err
	}
	name := "page"
	if !res.Found() {
		name = "notfound"
	}
	return r.execute(w, name, view)
}

func (r *Renderer) execute(w io.Writer, name string, view PageView) error {
	r.mu.RLock()
	tmpl := r.tmpl
	r.mu.RUnlock()

	// Buffer so a failing template never leaves a half-written response.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, view); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, fmt.Sprintf("execute %s template", name)).Build()
	}
	_, err := buf.WriteTo(w)
	return err
}
