// Package blocks turns a page's content blocks into HTML fragments.
//
// Dispatch looks each block up in a closed registry keyed by its kind. Blocks
// whose kind is unknown, or whose renderer fails, are skipped with a warning;
// dispatch itself never fails and never reorders its input.
package blocks

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
)

// Rendered is one dispatched block.
type Rendered struct {
	// Key is the block's stable id, emitted as data-block-key.
	Key  string
	Kind content.Kind
	HTML template.HTML
}

// Renderer renders one block variant. It receives only blocks of the kind it
// was registered for.
type Renderer interface {
	Render(ctx context.Context, block content.Block) (template.HTML, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, block content.Block) (template.HTML, error)

func (f RendererFunc) Render(ctx context.Context, block content.Block) (template.HTML, error) {
	return f(ctx, block)
}

// Dispatcher renders block lists. It is safe for concurrent use once built.
type Dispatcher struct {
	renderers map[content.Kind]Renderer
	logger    *slog.Logger
	recorder  metrics.Recorder
}

type Option func(*Dispatcher)

// WithRenderer replaces the renderer of a known kind. Registering a kind the
// content model cannot produce is a programming error and panics.
func WithRenderer(kind content.Kind, r Renderer) Option {
	if !slices.Contains(content.KnownKinds(), kind) {
		panic(fmt.Sprintf("blocks: cannot register renderer for unknown kind %q", kind))
	}
	return func(d *Dispatcher) { d.renderers[kind] = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(d *Dispatcher) { d.recorder = metrics.OrNoop(r) }
}

// New builds a dispatcher with the default HTML renderers.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		renderers: DefaultRenderers(),
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch renders blocks in order, skipping what cannot be rendered.
func (d *Dispatcher) Dispatch(ctx context.Context, blocks []content.Block) []Rendered {
	out := make([]Rendered, 0, len(blocks))
	for i, block := range blocks {
		if block == nil {
			d.skip(ctx, i, content.KindUnknown, "", fmt.Errorf("nil block"))
			continue
		}
		kind := block.Kind()
		renderer, ok := d.renderers[kind]
		if !ok {
			reason := fmt.Errorf("no renderer for block kind")
			if u, isUnknown := block.(*content.UnknownBlock); isUnknown && u.Err != nil {
				reason = u.Err
			}
			d.skip(ctx, i, kind, block.BlockID(), reason)
			continue
		}

		html, err := d.render(ctx, renderer, block)
		if err != nil {
			d.skip(ctx, i, kind, block.BlockID(), err)
			continue
		}
		d.recorder.IncBlockDispatch(string(kind), metrics.ResultSuccess)
		out = append(out, Rendered{Key: block.BlockID(), Kind: kind, HTML: html})
	}
	return out
}

func (d *Dispatcher) render(ctx context.Context, r Renderer, block content.Block) (html template.HTML, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panic: %v", rec)
		}
	}()
	return r.Render(ctx, block)
}

func (d *Dispatcher) skip(ctx context.Context, index int, kind content.Kind, id string, reason error) {
	result := metrics.ResultSkipped
	if kind != content.KindUnknown {
		result = metrics.ResultFailed
	}
	d.recorder.IncBlockDispatch(string(kind), result)
	d.logger.WarnContext(ctx, "Skipping content block",
		logfields.BlockKind(string(kind)),
		logfields.BlockID(id),
		slog.Int("position", index),
		logfields.Error(reason))
}

var wrapperTmpl = template.Must(template.New("block").Parse(
	`<div class="block block-{{.Kind}}" data-block-key="{{.Key}}">{{.HTML}}</div>`))

// Wrap returns the fragment inside its keyed container element.
func (r Rendered) Wrap() (template.HTML, error) {
	var buf bytes.Buffer
	if err := wrapperTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}
