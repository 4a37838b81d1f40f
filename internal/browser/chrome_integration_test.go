//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/navshell/internal/browser"
	"github.com/vidyasagar/navshell/internal/nav"
)

func TestChromeSurfaceNavigation_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/go" {
			http.Redirect(w, r, "/there", http.StatusFound)
			return
		}
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><h1>Hello World</h1><p>at %s</p></body></html>", r.URL.Path, r.URL.Path)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	results := make(chan browser.Result, 4)
	s, err := browser.NewChromeSurface(ctx, func(r browser.Result) { results <- r }, browser.ChromeOptions{
		Headless: true,
		Timeout:  20 * time.Second,
		Style:    "notty",
	})
	require.NoError(t, err)
	defer s.Close()

	s.IssueLoad(nav.LoadRequest{ID: 1, Location: nav.Location(ts.URL + "/go"), Kind: nav.IntentLoadURL})

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, nav.LoadID(1), r.ID)
		assert.Equal(t, nav.Location(ts.URL+"/there"), r.Final)
		require.NotNil(t, r.Page)
		assert.Contains(t, r.Page.Content, "Hello World")
	case <-ctx.Done():
		t.Fatal("chrome load never settled")
	}
}
