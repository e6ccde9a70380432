package content

import "encoding/json"

// Kind is the GraphQL __typename discriminator of a content block.
type Kind string

const (
	KindHeroSection      Kind = "HeroSection"
	KindImageTextSection Kind = "ImageTextSection"
	KindCarousel         Kind = "Carousel"
	KindCta              Kind = "Cta"
	// KindUnknown marks blocks whose discriminator is missing, unrecognized or undecodable.
	KindUnknown Kind = ""
)

// KnownKinds lists every discriminator the model can decode, in declaration order.
func KnownKinds() []Kind {
	return []Kind{KindHeroSection, KindImageTextSection, KindCarousel, KindCta}
}

// Sys carries the system metadata of an entry or asset.
type Sys struct {
	ID string `json:"id"`
}

// Asset is a media reference.
type Asset struct {
	Sys         Sys    `json:"sys"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// RichText wraps a Contentful rich-text document. JSON is left undecoded so the
// renderer can walk it lazily.
type RichText struct {
	JSON json.RawMessage `json:"json,omitempty"`
}

// Empty reports whether the document is absent.
func (r *RichText) Empty() bool {
	return r == nil || len(r.JSON) == 0 || string(r.JSON) == "null"
}

// Block is one member of the page block union.
type Block interface {
	Kind() Kind
	// BlockID is the stable entry id, used as the render key.
	BlockID() string
}

type HeroSection struct {
	Sys                Sys    `json:"sys"`
	Headline           string `json:"headline,omitempty"`
	Subtext            string `json:"subtext,omitempty"`
	BackgroundImage    *Asset `json:"backgroundImage,omitempty"`
	BackgroundImageAlt string `json:"backgroundImageAlt,omitempty"`
}

func (b *HeroSection) Kind() Kind      { return KindHeroSection }
func (b *HeroSection) BlockID() string { return b.Sys.ID }

// ImagePosition places the image of an ImageTextSection relative to its text.
type ImagePosition string

const (
	ImageLeft  ImagePosition = "Left"
	ImageRight ImagePosition = "Right"
)

type ImageTextSection struct {
	Sys           Sys           `json:"sys"`
	Title         string        `json:"title,omitempty"`
	Content       *RichText     `json:"content,omitempty"`
	Image         *Asset        `json:"image,omitempty"`
	ImagePosition ImagePosition `json:"imagePosition,omitempty"`
}

func (b *ImageTextSection) Kind() Kind      { return KindImageTextSection }
func (b *ImageTextSection) BlockID() string { return b.Sys.ID }

// ImageOnRight is true only for an explicit "Right" position; anything else renders left.
func (b *ImageTextSection) ImageOnRight() bool {
	return b.ImagePosition == ImageRight
}

type CarouselImage struct {
	Sys     Sys    `json:"sys"`
	Image   *Asset `json:"image,omitempty"`
	AltText string `json:"altText,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Alt prefers the explicit alt text and falls back to the asset description.
func (c CarouselImage) Alt() string {
	if c.AltText != "" {
		return c.AltText
	}
	if c.Image != nil {
		return c.Image.Description
	}
	return ""
}

type Carousel struct {
	Sys         Sys             `json:"sys"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Images      []CarouselImage `json:"-"`
}

func (b *Carousel) Kind() Kind      { return KindCarousel }
func (b *Carousel) BlockID() string { return b.Sys.ID }

type Cta struct {
	Sys         Sys    `json:"sys"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	CtaTitle    string `json:"ctaTitle,omitempty"`
	CtaURL      string `json:"ctaUrl,omitempty"`
}

func (b *Cta) Kind() Kind      { return KindCta }
func (b *Cta) BlockID() string { return b.Sys.ID }

// UnknownBlock stands in for an item the model cannot decode. It keeps the
// original position in the block list so skipping it never reorders siblings.
type UnknownBlock struct {
	Typename string
	Sys      Sys
	Raw      json.RawMessage
	Err      error
}

func (b *UnknownBlock) Kind() Kind      { return KindUnknown }
func (b *UnknownBlock) BlockID() string { return b.Sys.ID }

// Page is a routable document.
type Page struct {
	Sys    Sys
	Title  string
	Slug   string
	Blocks []Block
}

// NavLink is a labelled link used by navigation and footer.
type NavLink struct {
	Sys  Sys    `json:"sys"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Navigation struct {
	Sys   Sys
	Title string
	Links []NavLink
}

type Footer struct {
	Sys           Sys
	Title         string
	CopyrightText string
	Links         []NavLink
}
