package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.example")

	req, _ := http.NewRequest(http.MethodGet, "https://en.wikipedia.org/wiki/Acme", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req, _ = http.NewRequest(http.MethodGet, "https://api.internal.example/x", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "Dossier", NormalizeUserAgent("Dossier/0.1 (+https://github.com/ppiankov/dossier)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestRobotsChecker(t *testing.T) {
	var robotsHits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&robotsHits, 1)
			_, _ = w.Write([]byte("User-agent: Dossier\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	checker := NewRobotsChecker("Dossier/0.1", ts.Client())
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, ts.URL+"/wiki/Acme")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	assert.False(t, checker.IsAllowed(ctx, ts.URL+"/private/page"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&robotsHits))

	checker.Clear()
	assert.True(t, checker.IsAllowed(ctx, ts.URL+"/"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&robotsHits))
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	checker := NewRobotsChecker("Dossier/0.1", ts.Client())
	assert.True(t, checker.IsAllowed(context.Background(), ts.URL+"/anything"))
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("Dossier/0.1", nil)
	_, _, err := checker.CanFetch(context.Background(), "not a url")
	assert.Error(t, err)
}
