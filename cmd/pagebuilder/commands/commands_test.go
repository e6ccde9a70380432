package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

// fakeContentAPI answers the page, page list and chrome queries for a fixed
// set of published slugs.
func fakeContentAPI(t *testing.T, slugs ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var data any
		switch req.OperationName {
		case "GetAllPages":
			items := make([]map[string]any, 0, len(slugs))
			for _, s := range slugs {
				items = append(items, map[string]any{"slug": s})
			}
			data = map[string]any{"pageCollection": map[string]any{"total": len(slugs), "items": items}}
		case "GetPageBySlug":
			slug, _ := req.Variables["slug"].(string)
			items := []map[string]any{}
			for _, s := range slugs {
				if s == slug {
					items = append(items, map[string]any{
						"sys":   map[string]any{"id": "page" + strings.ReplaceAll(s, "/", "-")},
						"title": "Title " + s,
						"slug":  s,
					})
				}
			}
			data = map[string]any{"pageCollection": map[string]any{"total": len(items), "items": items}}
		case "GetNavigation":
			data = map[string]any{"navigationCollection": map[string]any{"items": []any{}}}
		case "GetFooter":
			data = map[string]any{"footerCollection": map[string]any{"items": []any{}}}
		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	cli    *CLI
	global *Global
	out    *bytes.Buffer
	dir    string
}

func newHarness(t *testing.T, apiURL string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONTENTFUL_SPACE_ID", "space")
	t.Setenv("CONTENTFUL_ACCESS_TOKEN", "token")
	t.Setenv("CONTENTFUL_GRAPHQL_URL", apiURL)

	cfgPath := filepath.Join(dir, "pagebuilder.yaml")
	cfg := "version: \"1.0\"\n" +
		"site:\n  title: Test Site\n" +
		"output:\n  directory: " + filepath.Join(dir, "out") + "\n  clean: true\n  link_audit: true\n" +
		"events:\n  path: " + filepath.Join(dir, "events.db") + "\n" +
		"monitoring:\n  metrics:\n    disabled: true\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	h := &harness{
		cli: &CLI{Config: cfgPath, LogLevel: "error"},
		out: &bytes.Buffer{},
		dir: dir,
	}
	h.global = &Global{Out: h.out}
	require.NoError(t, h.cli.AfterApply(h.global))
	return h
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	g := &Global{Out: &out}
	require.NoError(t, (&VersionCmd{}).Run(g, &CLI{}))
	assert.Equal(t, version.String()+"\n", out.String())
}

func TestInitCmd(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	path := filepath.Join(h.dir, "fresh.yaml")
	h.cli.Config = path

	require.NoError(t, (&InitCmd{}).Run(h.global, h.cli))
	assert.FileExists(t, path)
	assert.Contains(t, h.out.String(), "Configuration file created at "+path)

	err := (&InitCmd{}).Run(h.global, h.cli)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, (&InitCmd{Force: true}).Run(h.global, h.cli))
}

func TestSlugsCmd(t *testing.T) {
	api := fakeContentAPI(t, "/", "/about", "/blog/post")
	h := newHarness(t, api.URL)

	require.NoError(t, (&SlugsCmd{}).Run(h.global, h.cli))
	assert.Equal(t, "/\n/about\n/blog/post\n", h.out.String())

	h.out.Reset()
	require.NoError(t, (&SlugsCmd{Targets: true}).Run(h.global, h.cli))
	assert.Equal(t, "/about\n/blog/post\n", h.out.String())

	h.out.Reset()
	require.NoError(t, (&SlugsCmd{JSON: true}).Run(h.global, h.cli))
	var slugs []string
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &slugs))
	assert.Equal(t, []string{"/", "/about", "/blog/post"}, slugs)
}

func TestSlugsCmd_MissingCredentials(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	t.Setenv("CONTENTFUL_ACCESS_TOKEN", "")

	err := (&SlugsCmd{}).Run(h.global, h.cli)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTENTFUL_ACCESS_TOKEN")
}

func TestBuildThenHistory(t *testing.T) {
	api := fakeContentAPI(t, "/", "/about")
	h := newHarness(t, api.URL)

	require.NoError(t, (&BuildCmd{Concurrency: 2}).Run(h.global, h.cli))
	assert.Contains(t, h.out.String(), ": success")

	out := filepath.Join(h.dir, "out")
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "about", "index.html"))
	assert.FileExists(t, filepath.Join(out, "404.html"))
	assert.FileExists(t, filepath.Join(out, "routes.json"))

	h.out.Reset()
	require.NoError(t, (&HistoryCmd{JSON: true, Limit: 10}).Run(h.global, h.cli))
	var runs []eventstore.RunSummary
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, eventstore.KindBuild, runs[0].Kind)
	assert.Equal(t, eventstore.StatusCompleted, runs[0].Status)

	h.out.Reset()
	require.NoError(t, (&HistoryCmd{Limit: 10}).Run(h.global, h.cli))
	assert.Contains(t, h.out.String(), "STARTED")
	assert.Contains(t, h.out.String(), "completed")
}

func TestHistoryCmd_RejectsUnknownKind(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	require.Error(t, (&HistoryCmd{Kind: "deploy"}).Run(h.global, h.cli))
}

func TestFilterRuns(t *testing.T) {
	runs := []eventstore.RunSummary{
		{RunID: "a", Kind: eventstore.KindBuild},
		{RunID: "b", Kind: eventstore.KindWarm},
		{RunID: "c", Kind: eventstore.KindBuild},
	}
	assert.Len(t, filterRuns(runs, "", 0), 3)
	assert.Len(t, filterRuns(runs, "", 2), 2)

	builds := filterRuns(runs, eventstore.KindBuild, 0)
	require.Len(t, builds, 2)
	assert.Equal(t, "c", builds[1].RunID)
}
