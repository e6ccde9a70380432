package linkaudit

import (
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// BrokenLink is an internal link whose target was not generated.
type BrokenLink struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Text   string `json:"text,omitempty"`
}

// Report summarizes an audit.
type Report struct {
	Documents int          `json:"documents"`
	Links     int          `json:"links"`
	Broken    []BrokenLink `json:"broken"`
}

// OK reports whether no broken links were found.
func (r *Report) OK() bool { return len(r.Broken) == 0 }

// Options tunes an audit.
type Options struct {
	// BaseURL marks absolute links on the same host as internal.
	BaseURL string
	// IgnorePrefixes are path prefixes served dynamically, never generated.
	IgnorePrefixes []string
}

// DefaultIgnorePrefixes are the server's API routes.
var DefaultIgnorePrefixes = []string{"/api/"}

// Audit reads every .html document under root and checks that each internal
// link resolves to a generated file.
func Audit(root string, opts Options) (*Report, error) {
	if opts.IgnorePrefixes == nil {
		opts.IgnorePrefixes = DefaultIgnorePrefixes
	}
	report := &Report{Broken: []BrokenLink{}}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".html" {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		f, err := os.Open(filepath.Clean(p))
		if err != nil {
			return err
		}
		links, err := ExtractLinks(f, opts.BaseURL)
		_ = f.Close()
		if err != nil {
			return err
		}
		report.Documents++

		sourceDir := "/" + filepath.ToSlash(filepath.Dir(rel))
		for _, link := range links {
			if !link.IsInternal || link.Tag != "a" {
				continue
			}
			target, ok := targetPath(link.URL, sourceDir)
			if !ok || ignored(target, opts.IgnorePrefixes) {
				continue
			}
			report.Links++
			if !exists(root, target) {
				report.Broken = append(report.Broken, BrokenLink{
					Source: filepath.ToSlash(rel),
					URL:    link.URL,
					Text:   link.Text,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "link audit failed").
			WithContext("root", root).
			Build()
	}
	sort.Slice(report.Broken, func(i, j int) bool {
		if report.Broken[i].Source != report.Broken[j].Source {
			return report.Broken[i].Source < report.Broken[j].Source
		}
		return report.Broken[i].URL < report.Broken[j].URL
	})
	return report, nil
}

// targetPath turns a link into a site path. Fragment-only links have none.
func targetPath(link, sourceDir string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join(sourceDir, p)
	}
	return path.Clean(p), true
}

func ignored(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p+"/", prefix) || strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// exists resolves a site path the way a static file server would: the path
// itself, or its index.html.
func exists(root, p string) bool {
	candidate := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(p, "/")))
	if info, err := os.Stat(candidate); err == nil {
		if !info.IsDir() {
			return true
		}
		_, err := os.Stat(filepath.Join(candidate, "index.html"))
		return err == nil
	}
	_, err := os.Stat(candidate + ".html")
	return err == nil
}
