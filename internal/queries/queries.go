package queries

import (
	"fmt"
	"strings"
)

// Query is a named GraphQL document.
type Query struct {
	Name string
	Text string
}

// Operation names.
const (
	OpGetAllPages   = "GetAllPages"
	OpGetPageBySlug = "GetPageBySlug"
	OpGetNavigation = "GetNavigation"
	OpGetFooter     = "GetFooter"
)

// GetAllPages enumerates page slugs only. It is paginated with $skip and $limit
// and reports total so callers can walk past the API's default page size.
var GetAllPages = Query{
	Name: OpGetAllPages,
	Text: `
query GetAllPages($skip: Int = 0, $limit: Int = 100) {
  pageCollection(skip: $skip, limit: $limit, order: slug_ASC) {
    total
    skip
    limit
    items {
      slug
    }
  }
}
`,
}

// GetPageBySlug fetches one page with its block graph. Every union member
// carries __typename so blocks can be dispatched by kind. total exposes
// duplicate slugs, which the API would otherwise hide behind limit: 1.
var GetPageBySlug = Query{
	Name: OpGetPageBySlug,
	Text: compose(fmt.Sprintf(`
query GetPageBySlug($slug: String!) {
  pageCollection(where: { slug: $slug }, limit: 1) {
    total
    items {
      sys {
        id
      }
      title
      slug
      contentBlocksCollection(limit: %d) {
        items {
          __typename
          ... on HeroSection {
            ...HeroSectionFragment
          }
          ... on ImageTextSection {
            ...ImageTextSectionFragment
          }
          ... on Carousel {
            ...CarouselFragment
          }
          ... on Cta {
            ...CtaFragment
          }
        }
      }
    }
  }
}
`, BlockLimit), HeroSectionFragment, ImageTextSectionFragment, CarouselFragment, CtaFragment),
}

var GetNavigation = Query{
	Name: OpGetNavigation,
	Text: compose(`
query GetNavigation {
  navigationCollection(limit: 1) {
    items {
      sys {
        id
      }
      title
      navLinksCollection {
        items {
          ...NavLinkFragment
        }
      }
    }
  }
}
`, NavLinkFragment),
}

var GetFooter = Query{
	Name: OpGetFooter,
	Text: compose(`
query GetFooter {
  footerCollection(limit: 1) {
    items {
      sys {
        id
      }
      title
      copyrightText
      footerLinksCollection {
        items {
          ...NavLinkFragment
        }
      }
    }
  }
}
`, NavLinkFragment),
}

// All returns every query in a stable order.
func All() []Query {
	return []Query{GetAllPages, GetPageBySlug, GetNavigation, GetFooter}
}

func compose(operation string, fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(strings.TrimLeft(f, "\n"))
	}
	b.WriteString(strings.TrimLeft(operation, "\n"))
	return b.String()
}
