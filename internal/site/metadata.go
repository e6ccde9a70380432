package site

import (
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
)

// NotFoundTitle is the title of routes without a document.
const NotFoundTitle = "Page Not Found"

// Metadata is the title and description of a rendered route.
type Metadata struct {
	Title       string
	Description string
}

// HomeMetadata is fixed site metadata; without a home document only the title remains.
func HomeMetadata(site config.SiteConfig, found bool) Metadata {
	if !found {
		return Metadata{Title: site.Title}
	}
	return Metadata{Title: site.Title, Description: site.Description}
}

// PageMetadata derives metadata from a resolved document.
func PageMetadata(site config.SiteConfig, page *content.Page) Metadata {
	return Metadata{Title: page.Title, Description: page.Title + " - " + site.Title}
}

// NotFoundMetadata applies when resolution found nothing.
func NotFoundMetadata() Metadata {
	return Metadata{Title: NotFoundTitle}
}

// ErrorMetadata applies when resolution failed.
func ErrorMetadata(site config.SiteConfig) Metadata {
	return Metadata{Title: site.Title}
}
