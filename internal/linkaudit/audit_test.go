package linkaudit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func TestExtractLinks(t *testing.T) {
	doc := `<html><body>
		<a href="/about">About <b>us</b></a>
		<a href="https://example.com/contact">Contact</a>
		<a href="https://other.org/">Other</a>
		<a href="mailto:hi@example.com">Mail</a>
		<img src="https://images.ctfassets.net/x.jpg" alt="Eye">
	</body></html>`
	links, err := ExtractLinks(strings.NewReader(doc), "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 5)

	assert.Equal(t, "Aboutus", links[0].Text)
	assert.True(t, links[0].IsInternal)
	assert.True(t, links[1].IsInternal)
	assert.False(t, links[2].IsInternal)
	assert.False(t, links[3].IsInternal)
	assert.Equal(t, "img", links[4].Tag)
	assert.Equal(t, "Eye", links[4].Text)
	assert.False(t, links[4].IsInternal)
}

func TestAuditFindsBrokenLinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", `<a href="/about">About</a><a href="/missing">Gone</a><a href="#top">Top</a><a href="/api/exit-preview">Exit</a>`)
	writeFile(t, root, "about/index.html", `<a href="/">Home</a><a href="team">Team</a><a href="/about?x=1#y">Self</a>`)
	writeFile(t, root, "404.html", `<a href="/">Home</a>`)

	report, err := Audit(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 6, report.Links)
	assert.False(t, report.OK())
	assert.Equal(t, []BrokenLink{
		{Source: "about/index.html", URL: "team", Text: "Team"},
		{Source: "index.html", URL: "/missing", Text: "Gone"},
	}, report.Broken)
}

func TestAuditCleanSite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", `<a href="/services/dry-eye">Care</a>`)
	writeFile(t, root, "services/dry-eye/index.html", `<a href="https://example.com/">Home</a>`)

	report, err := Audit(root, Options{BaseURL: "https://example.com"})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Links)
}

func TestAuditMissingRoot(t *testing.T) {
	_, err := Audit(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}
