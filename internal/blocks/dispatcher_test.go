package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
)

func keys(rendered []Rendered) []string {
	out := make([]string, 0, len(rendered))
	for _, r := range rendered {
		out = append(out, r.Key)
	}
	return out
}

func TestDispatchPreservesOrder(t *testing.T) {
	blocks := []content.Block{
		&content.HeroSection{Sys: content.Sys{ID: "h1"}, Headline: "Relief"},
		&content.Cta{Sys: content.Sys{ID: "c1"}, CtaTitle: "Buy", CtaURL: "/buy"},
		&content.Cta{Sys: content.Sys{ID: "c1"}, CtaTitle: "Buy again", CtaURL: "/buy"},
		&content.ImageTextSection{Sys: content.Sys{ID: "it1"}, Title: "How"},
	}

	rendered := New().Dispatch(context.Background(), blocks)

	assert.Equal(t, []string{"h1", "c1", "c1", "it1"}, keys(rendered), "no dedup and no reordering")
	assert.Equal(t, content.KindHeroSection, rendered[0].Kind)
	assert.Contains(t, string(rendered[0].HTML), "<h1>Relief</h1>")
	assert.Contains(t, string(rendered[2].HTML), "Buy again")
}

func TestDispatchSkipsUnknownBlocks(t *testing.T) {
	var logs bytes.Buffer
	d := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	blocks := content.DecodeBlocks([]json.RawMessage{
		json.RawMessage(`{"__typename":"Cta","sys":{"id":"a"},"ctaTitle":"A"}`),
		json.RawMessage(`{"__typename":"Testimonial","sys":{"id":"t"}}`),
		json.RawMessage(`null`),
		json.RawMessage(`{"__typename":"Cta","sys":{"id":"b"},"ctaTitle":"B"}`),
	})
	rendered := d.Dispatch(context.Background(), blocks)

	assert.Equal(t, []string{"a", "b"}, keys(rendered))
	assert.Contains(t, logs.String(), "Skipping content block")
	assert.Contains(t, logs.String(), "Testimonial")
}

func TestDispatchSkipsFailingAndPanickingRenderers(t *testing.T) {
	failing := RendererFunc(func(context.Context, content.Block) (template.HTML, error) {
		return "", errors.New("template exploded")
	})
	panicking := RendererFunc(func(context.Context, content.Block) (template.HTML, error) {
		panic("nil image")
	})
	d := New(
		WithRenderer(content.KindHeroSection, failing),
		WithRenderer(content.KindCarousel, panicking),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	rendered := d.Dispatch(context.Background(), []content.Block{
		&content.HeroSection{Sys: content.Sys{ID: "h"}},
		&content.Carousel{Sys: content.Sys{ID: "car"}},
		&content.Cta{Sys: content.Sys{ID: "c"}},
		nil,
	})
	assert.Equal(t, []string{"c"}, keys(rendered))
}

func TestDispatchEmptyInput(t *testing.T) {
	rendered := New().Dispatch(context.Background(), nil)
	assert.NotNil(t, rendered)
	assert.Empty(t, rendered)
}

func TestWithRendererRejectsUnknownKind(t *testing.T) {
	assert.Panics(t, func() { WithRenderer("Testimonial", RendererFunc(nil)) })
	assert.Panics(t, func() { WithRenderer(content.KindUnknown, RendererFunc(nil)) })
}

func TestWrapCarriesKey(t *testing.T) {
	html, err := Rendered{Key: `k"1`, Kind: content.KindCta, HTML: "<p>x</p>"}.Wrap()
	require.NoError(t, err)
	assert.Equal(t, `<div class="block block-Cta" data-block-key="k&#34;1"><p>x</p></div>`, string(html))
}
