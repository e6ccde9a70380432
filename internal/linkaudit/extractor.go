// Package linkaudit checks a generated site for internal links that point at
// routes which were not generated.
package linkaudit

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Link is a link extracted from a generated document.
type Link struct {
	URL        string
	Text       string
	Tag        string
	Attribute  string
	IsInternal bool
}

// linkAttrs lists the link-bearing attribute of each element the audit reads.
var linkAttrs = map[string]string{
	"a":      "href",
	"img":    "src",
	"link":   "href",
	"script": "src",
	"source": "src",
}

// ExtractLinks extracts every link from an HTML document. base decides which
// absolute URLs count as internal; it may be empty.
func ExtractLinks(r io.Reader, baseURL string) ([]*Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid base URL").
			WithContext("base_url", baseURL).
			Build()
	}

	var links []*Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := getAttr(n, attr); v != "" {
					text := extractText(n)
					if n.Data == "img" {
						text = getAttr(n, "alt")
					}
					links = append(links, &Link{
						URL:        v,
						Text:       text,
						Tag:        n.Data,
						Attribute:  attr,
						IsInternal: isInternalLink(v, base),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// isInternalLink reports whether link targets this site: relative paths and
// absolute URLs on the base host.
func isInternalLink(link string, base *url.URL) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return true
	}
	return base != nil && base.Host != "" && strings.EqualFold(u.Host, base.Host)
}
