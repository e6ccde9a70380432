package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/revalidate"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, segments []string, preview bool) *site.Result {
	slug := site.RouteKey(segments)
	return &site.Result{Slug: slug, Strategy: site.StrategyFor(slug, preview), State: site.StateFound, CacheControl: site.CacheControlStatic}
}

func (stubResolver) Config() config.SiteConfig { return config.SiteConfig{Title: "Dry Eyes"} }

type stubRenderer struct{}

func (stubRenderer) Render(w io.Writer, res *site.Result, _ config.SiteConfig, _ bool) error {
	_, err := fmt.Fprintf(w, "page %s", res.Slug)
	return err
}

type stubRevalidator struct{}

func (stubRevalidator) Revalidate(_ context.Context, req revalidate.Request) (revalidate.Outcome, error) {
	return revalidate.Outcome{RunID: "rv", Request: req}, nil
}

func newHandler() http.Handler {
	return NewHandler(Deps{
		Resolver:         stubResolver{},
		Renderer:         stubRenderer{},
		Revalidator:      stubRevalidator{},
		Ready:            func() bool { return true },
		Metrics:          http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "metrics") }),
		MetricsPath:      "/metrics",
		PreviewSecret:    "p",
		RevalidateSecret: "r",
		Logger:           discard(),
	})
}

func TestRouteTable(t *testing.T) {
	h := newHandler()
	cases := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/", http.StatusOK, "page /"},
		{http.MethodGet, "/services/dry-eye", http.StatusOK, "page /services/dry-eye"},
		{http.MethodGet, PathHealth, http.StatusOK, "healthy"},
		{http.MethodGet, PathReady, http.StatusOK, "ready"},
		{http.MethodGet, "/metrics", http.StatusOK, "metrics"},
		{http.MethodPost, PathRevalidate + "?secret=r", http.StatusOK, `"revalidated":true`},
		{http.MethodGet, PathPreview + "?secret=p&slug=/about", http.StatusTemporaryRedirect, ""},
		{http.MethodGet, PathExitPreview, http.StatusTemporaryRedirect, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var body io.Reader
			if tc.method == http.MethodPost {
				body = strings.NewReader(`{"slug":"/about"}`)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, body))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestServerStartStop(t *testing.T) {
	s := New("127.0.0.1:0", newHandler(), discard())
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + PathHealth)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestServerStartFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	err = New(ln.Addr().String(), newHandler(), discard()).Start(context.Background())
	assert.Error(t, err)
}
