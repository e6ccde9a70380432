package queries

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	spreadRe     = regexp.MustCompile(`\.\.\.([A-Za-z]+Fragment)\b`)
	definitionRe = regexp.MustCompile(`fragment ([A-Za-z]+Fragment) on`)
)

func TestQueriesAreWellFormed(t *testing.T) {
	for _, q := range All() {
		t.Run(q.Name, func(t *testing.T) {
			assert.Contains(t, q.Text, "query "+q.Name)
			assert.Equal(t, strings.Count(q.Text, "{"), strings.Count(q.Text, "}"), "unbalanced braces")
			assert.Equal(t, strings.Count(q.Text, "("), strings.Count(q.Text, ")"), "unbalanced parentheses")

			defined := map[string]int{}
			for _, m := range definitionRe.FindAllStringSubmatch(q.Text, -1) {
				defined[m[1]]++
			}
			for name, n := range defined {
				assert.Equalf(t, 1, n, "fragment %s defined more than once", name)
			}
			used := map[string]bool{}
			for _, m := range spreadRe.FindAllStringSubmatch(q.Text, -1) {
				used[m[1]] = true
				assert.Containsf(t, defined, m[1], "fragment %s used but not defined", m[1])
			}
			for name := range defined {
				assert.Truef(t, used[name], "fragment %s defined but unused", name)
			}
		})
	}
}

func TestGetPageBySlugShape(t *testing.T) {
	text := GetPageBySlug.Text

	assert.Contains(t, text, "pageCollection(where: { slug: $slug }, limit: 1)")
	assert.Contains(t, text, fmt.Sprintf("contentBlocksCollection(limit: %d)", BlockLimit))
	assert.Contains(t, text, fmt.Sprintf("imagesCollection(limit: %d)", CarouselImageLimit))
	assert.Contains(t, text, "__typename")
	for _, member := range []string{"HeroSection", "ImageTextSection", "Carousel", "Cta"} {
		assert.Contains(t, text, "... on "+member+" {")
	}
	assert.Equal(t, 20, BlockLimit)
	assert.Equal(t, 10, CarouselImageLimit)
}

func TestGetAllPagesSelectsSlugsOnly(t *testing.T) {
	text := GetAllPages.Text
	assert.Contains(t, text, "$skip: Int")
	assert.Contains(t, text, "$limit: Int")
	assert.Contains(t, text, "total")
	assert.NotContains(t, text, "contentBlocksCollection")
	assert.NotContains(t, text, "fragment")
}

func TestChromeQueries(t *testing.T) {
	require.Contains(t, GetNavigation.Text, "navigationCollection(limit: 1)")
	require.Contains(t, GetNavigation.Text, "navLinksCollection")
	require.Contains(t, GetFooter.Text, "footerCollection(limit: 1)")
	require.Contains(t, GetFooter.Text, "copyrightText")
	require.Contains(t, GetFooter.Text, "footerLinksCollection")
}
