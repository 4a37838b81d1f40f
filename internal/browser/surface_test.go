package browser

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/navshell/internal/nav"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Page</title></head><body><article>
<h1>Page</h1>
<p>Some readable text for the extractor, long enough to count as an article body.
Go to the <a href="/other">other page</a> or <a href="https://example.org/x">away</a>.</p>
</article></body></html>`)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "nothing here")
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSurface(t *testing.T, timeout time.Duration) (*HTTPSurface, chan Result) {
	t.Helper()
	results := make(chan Result, 4)
	s, err := NewHTTPSurface(NewFetcher(nil), func(r Result) { results <- r }, HTTPOptions{
		Timeout:   timeout,
		CacheSize: 8,
		Style:     "notty",
	})
	require.NoError(t, err)
	return s, results
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

func TestHTTPSurfaceLoadsAndResolvesLinks(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 5*time.Second)
	defer s.Close()

	loc := nav.Location(srv.URL + "/page")
	s.IssueLoad(nav.LoadRequest{ID: 1, Location: loc, Kind: nav.IntentLoadURL})

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, nav.LoadID(1), r.ID)
	assert.Equal(t, loc, r.Final)
	require.NotNil(t, r.Page)
	assert.Equal(t, http.StatusOK, r.Page.StatusCode)

	var urls []string
	for _, l := range r.Page.Links {
		urls = append(urls, l.URL)
	}
	assert.Contains(t, urls, srv.URL+"/other")
	assert.Contains(t, urls, "https://example.org/x")
}

func TestHTTPSurfaceReportsRedirectTarget(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 5*time.Second)
	defer s.Close()

	s.IssueLoad(nav.LoadRequest{ID: 3, Location: nav.Location(srv.URL + "/redirect"), Kind: nav.IntentLoadURL})

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, nav.Location(srv.URL+"/redirect"), r.Requested)
	assert.Equal(t, nav.Location(srv.URL+"/page"), r.Final)
}

func TestHTTPSurfaceShowsErrorStatusPages(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 5*time.Second)
	defer s.Close()

	s.IssueLoad(nav.LoadRequest{ID: 1, Location: nav.Location(srv.URL + "/missing"), Kind: nav.IntentLoadURL})

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, http.StatusNotFound, r.Page.StatusCode)
}

func TestHTTPSurfaceTimeout(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 50*time.Millisecond)
	defer s.Close()

	s.IssueLoad(nav.LoadRequest{ID: 9, Location: nav.Location(srv.URL + "/slow"), Kind: nav.IntentLoadURL})

	r := waitResult(t, results)
	require.Error(t, r.Err)
	assert.Equal(t, nav.LoadID(9), r.ID)
	assert.Contains(t, r.Err.Error(), "timed out after 50ms")
	assert.Nil(t, r.Page)
}

func TestHTTPSurfaceServesHistoryMovesFromCache(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 5*time.Second)
	defer s.Close()

	loc := nav.Location(srv.URL + "/page")
	s.IssueLoad(nav.LoadRequest{ID: 1, Location: loc, Kind: nav.IntentLoadURL})
	first := waitResult(t, results)
	require.NoError(t, first.Err)

	srv.Close()

	s.IssueLoad(nav.LoadRequest{ID: 2, Location: loc, Kind: nav.IntentGoBack})
	back := waitResult(t, results)
	require.NoError(t, back.Err)
	assert.Same(t, first.Page, back.Page)

	// A fresh load never uses the cache.
	s.IssueLoad(nav.LoadRequest{ID: 3, Location: loc, Kind: nav.IntentLoadURL})
	again := waitResult(t, results)
	assert.Error(t, again.Err)
}

func lineCount(content string) int {
	return strings.Count(strings.TrimRight(content, "\n"), "\n") + 1
}

func TestHTTPSurfaceRerendersCachedPageAtNewWidth(t *testing.T) {
	srv := newTestSite(t)
	s, results := newTestSurface(t, 5*time.Second)
	defer s.Close()

	s.SetWidth(120)
	loc := nav.Location(srv.URL + "/page")
	s.IssueLoad(nav.LoadRequest{ID: 1, Location: loc, Kind: nav.IntentLoadURL})
	wide := waitResult(t, results)
	require.NoError(t, wide.Err)

	srv.Close()
	s.SetWidth(40)

	s.IssueLoad(nav.LoadRequest{ID: 2, Location: loc, Kind: nav.IntentGoBack})
	narrow := waitResult(t, results)
	require.NoError(t, narrow.Err)
	assert.NotSame(t, wide.Page, narrow.Page)
	assert.NotEqual(t, wide.Page.Content, narrow.Page.Content)
	assert.Greater(t, lineCount(narrow.Page.Content), lineCount(wide.Page.Content), "narrower render wraps onto more lines")
	assert.Equal(t, wide.Page.Title, narrow.Page.Title)
	assert.Len(t, narrow.Page.Links, len(wide.Page.Links))

	s.IssueLoad(nav.LoadRequest{ID: 3, Location: loc, Kind: nav.IntentGoForward})
	again := waitResult(t, results)
	require.NoError(t, again.Err)
	assert.Same(t, narrow.Page, again.Page, "same width reuses the cached render")
}

type discardSurface struct{ reqs []nav.LoadRequest }

func (d *discardSurface) IssueLoad(req nav.LoadRequest) { d.reqs = append(d.reqs, req) }

func TestResultApply(t *testing.T) {
	surface := &discardSurface{}
	s := nav.NewSession(surface)

	id, err := s.Submit(nav.LoadURL("https://example.com/start"))
	require.NoError(t, err)
	Result{ID: id, Final: "https://example.com/landed"}.Apply(s)

	cur, ok := s.CurrentLocation()
	require.True(t, ok)
	assert.Equal(t, nav.Location("https://example.com/landed"), cur)

	id, err = s.Submit(nav.LoadURL("https://example.com/broken"))
	require.NoError(t, err)
	Result{ID: id, Err: fmt.Errorf("connection refused")}.Apply(s)

	assert.False(t, s.Pending())
	cur, _ = s.CurrentLocation()
	assert.Equal(t, nav.Location("https://example.com/landed"), cur)
	assert.Len(t, s.Snapshot().Entries, 1)
}
