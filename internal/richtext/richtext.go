// Package richtext renders Contentful rich-text documents to HTML.
//
// The document is converted into an x/net/html node tree and serialized with
// html.Render, so text and attribute escaping is handled by the parser package.
// Embedded entries and assets are not resolved; they render nothing.
package richtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is one rich-text node as serialized by Contentful.
type Node struct {
	NodeType string         `json:"nodeType"`
	Value    string         `json:"value,omitempty"`
	Marks    []Mark         `json:"marks,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Content  []Node         `json:"content,omitempty"`
}

type Mark struct {
	Type string `json:"type"`
}

var blockElements = map[string]atom.Atom{
	"paragraph":         atom.P,
	"heading-1":         atom.H1,
	"heading-2":         atom.H2,
	"heading-3":         atom.H3,
	"heading-4":         atom.H4,
	"heading-5":         atom.H5,
	"heading-6":         atom.H6,
	"unordered-list":    atom.Ul,
	"ordered-list":      atom.Ol,
	"list-item":         atom.Li,
	"blockquote":        atom.Blockquote,
	"table":             atom.Table,
	"table-row":         atom.Tr,
	"table-cell":        atom.Td,
	"table-header-cell": atom.Th,
}

var markElements = map[string]atom.Atom{
	"bold":        atom.Strong,
	"italic":      atom.Em,
	"underline":   atom.U,
	"code":        atom.Code,
	"superscript": atom.Sup,
	"subscript":   atom.Sub,
}

// Render converts a raw document to HTML. An empty or null document renders to "".
func Render(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	var doc Node
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", fmt.Errorf("decode rich text: %w", err)
	}
	if doc.NodeType != "document" {
		return "", fmt.Errorf("rich text root is %q, want document", doc.NodeType)
	}
	return RenderNode(doc)
}

// RenderNode renders the children of a document node.
func RenderNode(doc Node) (string, error) {
	var buf strings.Builder
	for _, child := range doc.Content {
		n := convert(child)
		if n == nil {
			continue
		}
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render rich text: %w", err)
		}
	}
	return buf.String(), nil
}

func convert(n Node) *html.Node {
	switch n.NodeType {
	case "text":
		return textNode(n)
	case "hr":
		return element(atom.Hr)
	case "hyperlink":
		a := element(atom.A)
		if uri, ok := n.Data["uri"].(string); ok && uri != "" {
			a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: uri})
		}
		appendChildren(a, n.Content)
		return a
	}
	if tag, ok := blockElements[n.NodeType]; ok {
		el := element(tag)
		appendChildren(el, n.Content)
		return el
	}
	// embedded-entry-block, embedded-asset-block, entry-hyperlink and friends
	// need linked entries the block queries do not request.
	return nil
}

func textNode(n Node) *html.Node {
	text := &html.Node{Type: html.TextNode, Data: n.Value}
	if len(n.Marks) == 0 {
		return text
	}
	var root, inner *html.Node
	for _, m := range n.Marks {
		tag, ok := markElements[m.Type]
		if !ok {
			continue
		}
		el := element(tag)
		if root == nil {
			root = el
		} else {
			inner.AppendChild(el)
		}
		inner = el
	}
	if root == nil {
		return text
	}
	inner.AppendChild(text)
	return root
}

func appendChildren(parent *html.Node, children []Node) {
	for _, c := range children {
		if n := convert(c); n != nil {
			parent.AppendChild(n)
		}
	}
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// PlainText flattens a document to its text content, paragraphs separated by a space.
func PlainText(raw json.RawMessage) string {
	var doc Node
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var parts []string
	var walk func(Node)
	walk = func(n Node) {
		if n.NodeType == "text" && strings.TrimSpace(n.Value) != "" {
			parts = append(parts, strings.TrimSpace(n.Value))
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " ")
}
