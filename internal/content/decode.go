package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Collection is the paginated list envelope of the GraphQL Content API.
type Collection[T any] struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}

type items[T any] struct {
	Items []T `json:"items"`
}

// DecodeBlock decodes one union member by its __typename. It never fails:
// null items, unrecognized discriminators and malformed members come back as
// *UnknownBlock with the reason in Err.
func DecodeBlock(raw json.RawMessage) Block {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &UnknownBlock{Raw: raw, Err: fmt.Errorf("null block")}
	}

	var head struct {
		Typename string `json:"__typename"`
		Sys      Sys    `json:"sys"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return &UnknownBlock{Raw: raw, Err: fmt.Errorf("decode block header: %w", err)}
	}

	var block Block
	switch Kind(head.Typename) {
	case KindHeroSection:
		block = &HeroSection{}
	case KindImageTextSection:
		block = &ImageTextSection{}
	case KindCarousel:
		block = &Carousel{}
	case KindCta:
		block = &Cta{}
	default:
		err := fmt.Errorf("unknown block type %q", head.Typename)
		if head.Typename == "" {
			err = fmt.Errorf("block has no __typename")
		}
		return &UnknownBlock{Typename: head.Typename, Sys: head.Sys, Raw: raw, Err: err}
	}

	if err := json.Unmarshal(trimmed, block); err != nil {
		return &UnknownBlock{
			Typename: head.Typename,
			Sys:      head.Sys,
			Raw:      raw,
			Err:      fmt.Errorf("decode %s: %w", head.Typename, err),
		}
	}
	return block
}

// DecodeBlocks decodes every item, keeping positions.
func DecodeBlocks(raws []json.RawMessage) []Block {
	blocks := make([]Block, 0, len(raws))
	for _, raw := range raws {
		blocks = append(blocks, DecodeBlock(raw))
	}
	return blocks
}

func (b *Carousel) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sys              Sys                    `json:"sys"`
		Title            string                 `json:"title"`
		Description      string                 `json:"description"`
		ImagesCollection *items[*CarouselImage] `json:"imagesCollection"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*b = Carousel{Sys: wire.Sys, Title: wire.Title, Description: wire.Description}
	if wire.ImagesCollection != nil {
		for _, img := range wire.ImagesCollection.Items {
			if img != nil {
				b.Images = append(b.Images, *img)
			}
		}
	}
	return nil
}

func (p *Page) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sys                     Sys                     `json:"sys"`
		Title                   string                  `json:"title"`
		Slug                    string                  `json:"slug"`
		ContentBlocksCollection *items[json.RawMessage] `json:"contentBlocksCollection"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Page{Sys: wire.Sys, Title: wire.Title, Slug: wire.Slug}
	if wire.ContentBlocksCollection != nil {
		p.Blocks = DecodeBlocks(wire.ContentBlocksCollection.Items)
	}
	return nil
}

func (n *Navigation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sys                Sys              `json:"sys"`
		Title              string           `json:"title"`
		NavLinksCollection *items[*NavLink] `json:"navLinksCollection"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = Navigation{Sys: wire.Sys, Title: wire.Title}
	if wire.NavLinksCollection != nil {
		n.Links = compactLinks(wire.NavLinksCollection.Items)
	}
	return nil
}

func (f *Footer) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sys                   Sys              `json:"sys"`
		Title                 string           `json:"title"`
		CopyrightText         string           `json:"copyrightText"`
		FooterLinksCollection *items[*NavLink] `json:"footerLinksCollection"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*f = Footer{Sys: wire.Sys, Title: wire.Title, CopyrightText: wire.CopyrightText}
	if wire.FooterLinksCollection != nil {
		f.Links = compactLinks(wire.FooterLinksCollection.Items)
	}
	return nil
}

func compactLinks(in []*NavLink) []NavLink {
	out := make([]NavLink, 0, len(in))
	for _, l := range in {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out
}
