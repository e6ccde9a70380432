package blocks

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/richtext"
)

// eagerSlides is how many leading carousel images load eagerly.
const eagerSlides = 3

// markdown renders free-text description fields. Raw HTML in the source is
// escaped because goldmark's unsafe mode stays off.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// Markdown converts a description field to HTML.
func Markdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML
}

var blockTemplates = template.Must(template.New("blocks").Parse(`
{{define "hero"}}<section class="hero">
{{- with .Image}}<img class="hero-background" src="{{.URL}}" alt="{{$.Alt}}">{{end -}}
<div class="hero-content">
{{- with .Block.Headline}}<h1>{{.}}</h1>{{end -}}
{{- with .Block.Subtext}}<p>{{.}}</p>{{end -}}
</div></section>{{end}}

{{define "image-text"}}<section class="image-text {{if .Right}}image-right{{else}}image-left{{end}}">
{{- with .Image}}<figure><img src="{{.URL}}" alt="{{$.Alt}}"></figure>{{end -}}
<div class="image-text-body">
{{- with .Block.Title}}<h2>{{.}}</h2>{{end -}}
{{- with .Body}}<div class="rich-text">{{.}}</div>{{end -}}
</div></section>{{end}}

{{define "carousel"}}<section class="carousel">
{{- with .Block.Title}}<h2>{{.}}</h2>{{end -}}
{{- with .Description}}<div class="carousel-description">{{.}}</div>{{end -}}
<ol class="carousel-track">
{{- range $i, $s := .Slides}}<li class="carousel-slide{{if eq $i 0}} active{{end}}" data-slide-key="{{$s.Key}}">
<img src="{{$s.URL}}" alt="{{$s.Alt}}" loading="{{if $s.Eager}}eager{{else}}lazy{{end}}">
{{- with $s.Caption}}<p class="carousel-caption">{{.}}</p>{{end -}}
</li>{{end -}}
</ol></section>{{end}}

{{define "cta"}}<section class="cta">
{{- with .Block.Title}}<h2>{{.}}</h2>{{end -}}
{{- with .Description}}<div class="cta-description">{{.}}</div>{{end -}}
{{- if .Block.CtaURL}}<a class="button" href="{{.Block.CtaURL}}">{{.Block.CtaTitle}}</a>
{{- else if .Block.CtaTitle}}<span class="button">{{.Block.CtaTitle}}</span>{{end -}}
</section>{{end}}
`))

// DefaultRenderers returns the HTML renderer of every known block kind.
func DefaultRenderers() map[content.Kind]Renderer {
	return map[content.Kind]Renderer{
		content.KindHeroSection:      RendererFunc(renderHero),
		content.KindImageTextSection: RendererFunc(renderImageText),
		content.KindCarousel:         RendererFunc(renderCarousel),
		content.KindCta:              RendererFunc(renderCta),
	}
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := blockTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

func assetWithURL(a *content.Asset) *content.Asset {
	if a == nil || a.URL == "" {
		return nil
	}
	return a
}

func renderHero(_ context.Context, b content.Block) (template.HTML, error) {
	hero, ok := b.(*content.HeroSection)
	if !ok {
		return "", fmt.Errorf("hero renderer got %T", b)
	}
	return execute("hero", struct {
		Block *content.HeroSection
		Image *content.Asset
		Alt   string
	}{hero, assetWithURL(hero.BackgroundImage), hero.BackgroundImageAlt})
}

func renderImageText(_ context.Context, b content.Block) (template.HTML, error) {
	section, ok := b.(*content.ImageTextSection)
	if !ok {
		return "", fmt.Errorf("image-text renderer got %T", b)
	}
	var body template.HTML
	if !section.Content.Empty() {
		html, err := richtext.Render(section.Content.JSON)
		if err != nil {
			return "", err
		}
		body = template.HTML(html) //nolint:gosec // serialized by x/net/html
	}
	alt := ""
	if section.Image != nil {
		alt = section.Image.Description
		if alt == "" {
			alt = section.Image.Title
		}
	}
	return execute("image-text", struct {
		Block *content.ImageTextSection
		Image *content.Asset
		Alt   string
		Body  template.HTML
		Right bool
	}{section, assetWithURL(section.Image), alt, body, section.ImageOnRight()})
}

type slide struct {
	Key     string
	URL     string
	Alt     string
	Caption string
	Eager   bool
}

func renderCarousel(_ context.Context, b content.Block) (template.HTML, error) {
	carousel, ok := b.(*content.Carousel)
	if !ok {
		return "", fmt.Errorf("carousel renderer got %T", b)
	}
	slides := make([]slide, 0, len(carousel.Images))
	for _, img := range carousel.Images {
		if img.Image == nil || img.Image.URL == "" {
			continue
		}
		slides = append(slides, slide{
			Key:     img.Sys.ID,
			URL:     img.Image.URL,
			Alt:     img.Alt(),
			Caption: img.Caption,
			Eager:   len(slides) < eagerSlides,
		})
	}
	// A carousel without displayable images renders nothing.
	if len(slides) == 0 {
		return "", nil
	}
	desc, err := Markdown(carousel.Description)
	if err != nil {
		return "", err
	}
	return execute("carousel", struct {
		Block       *content.Carousel
		Description template.HTML
		Slides      []slide
	}{carousel, desc, slides})
}

func renderCta(_ context.Context, b content.Block) (template.HTML, error) {
	cta, ok := b.(*content.Cta)
	if !ok {
		return "", fmt.Errorf("cta renderer got %T", b)
	}
	desc, err := Markdown(cta.Description)
	if err != nil {
		return "", err
	}
	return execute("cta", struct {
		Block       *content.Cta
		Description template.HTML
	}{cta, desc})
}
