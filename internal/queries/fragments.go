// Package queries holds the GraphQL documents sent to the Content API.
//
// Queries are composed from fixed fragments at package init; nothing here
// branches at runtime.
package queries

import (
	"fmt"
	"strings"
)

const (
	// BlockLimit caps the number of content blocks fetched per page.
	BlockLimit = 20
	// CarouselImageLimit caps the number of images fetched per carousel.
	CarouselImageLimit = 10
	// PageSlugPageSize is the page size used when enumerating slugs.
	PageSlugPageSize = 100
)

const assetFields = `sys {
      id
    }
    url
    title
    description`

var NavLinkFragment = `
fragment NavLinkFragment on NavLink {
  sys {
    id
  }
  text
  url
}
`

var HeroSectionFragment = `
fragment HeroSectionFragment on HeroSection {
  sys {
    id
  }
  headline
  subtext
  backgroundImage {
    ` + assetFields + `
  }
  backgroundImageAlt
}
`

var ImageTextSectionFragment = `
fragment ImageTextSectionFragment on ImageTextSection {
  sys {
    id
  }
  title
  content {
    json
  }
  image {
    ` + assetFields + `
  }
  imagePosition
}
`

var CarouselFragment = fmt.Sprintf(`
fragment CarouselFragment on Carousel {
  sys {
    id
  }
  title
  description
  imagesCollection(limit: %d) {
    items {
      sys {
        id
      }
      image {
        %s
      }
      altText
      caption
    }
  }
}
`, CarouselImageLimit, strings.ReplaceAll(assetFields, "\n", "\n    "))

var CtaFragment = `
fragment CtaFragment on Cta {
  sys {
    id
  }
  title
  description
  ctaTitle
  ctaUrl
}
`
