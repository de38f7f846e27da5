package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pomona/downloader/internal/config"
	"pomona/downloader/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
	<a href="/pom/search.xhtml?start=20">Next</a>
	<a href="/pom/catalog.xhtml?id=1&amp;q=apple">Apple</a>
	<a>No target</a>
	<a href="/pom/catalog.xhtml?id=2">Pear</a>
	<a href="/pom/catalog.xhtml?id=1&amp;q=apple">Apple again</a>
	<a href="https://example.test/pom/catalog.xhtml?id=3">Absolute</a>
</body></html>`

func testConfig(baseURL string) config.PomonaConfig {
	return config.PomonaConfig{
		BaseURL:       baseURL,
		SearchPath:    "/pom/search.xhtml?start=%d&searchText=",
		CatalogPrefix: "/pom/catalog.xhtml?id=",
		Timeout:       5,
	}
}

func TestExtractReferences(t *testing.T) {
	refs, err := ExtractReferences(listingHTML, "/pom/catalog.xhtml?id=")
	require.NoError(t, err)

	assert.Equal(t, []domain.CatalogReference{
		"/pom/catalog.xhtml?id=1&q=apple",
		"/pom/catalog.xhtml?id=2",
	}, refs)
}

func TestExtractReferences_Idempotent(t *testing.T) {
	first, err := ExtractReferences(listingHTML, "/pom/catalog.xhtml?id=")
	require.NoError(t, err)
	second, err := ExtractReferences(listingHTML, "/pom/catalog.xhtml?id=")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractReferences_NoMatches(t *testing.T) {
	refs, err := ExtractReferences(`<html><body><p>Nothing here</p></body></html>`, "/pom/catalog.xhtml?id=")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestPomonaClient_ListingURL(t *testing.T) {
	c := NewPomonaClient(testConfig("https://usdawatercolors.nal.usda.gov"), nil)
	defer c.Close()

	assert.Equal(t,
		"https://usdawatercolors.nal.usda.gov/pom/search.xhtml?start=40&searchText=",
		c.ListingURL(40))
}

func TestPomonaClient_GetCatalogReferences(t *testing.T) {
	var gotStart string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		fmt.Fprint(w, listingHTML)
	}))
	defer server.Close()

	c := NewPomonaClient(testConfig(server.URL), nil)
	defer c.Close()

	refs, err := c.GetCatalogReferences(context.Background(), 60)
	require.NoError(t, err)

	assert.Equal(t, "60", gotStart)
	assert.Len(t, refs, 2)
}

func TestPomonaClient_FetchListing_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewPomonaClient(testConfig(server.URL), nil)
	defer c.Close()

	_, err := c.FetchListing(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.GetCatalogReferences(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestPomonaClient_FetchImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "404" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	defer server.Close()

	c := NewPomonaClient(testConfig(server.URL), nil)
	defer c.Close()

	img, err := c.FetchImage(context.Background(), domain.DownloadLink(server.URL+"/pom/download.xhtml?id=42"))
	require.NoError(t, err)
	assert.True(t, img.OK())
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xE0}, img.Body)

	img, err = c.FetchImage(context.Background(), domain.DownloadLink(server.URL+"/pom/download.xhtml?id=404"))
	require.NoError(t, err)
	assert.False(t, img.OK())
	assert.Equal(t, http.StatusNotFound, img.StatusCode)
}

func TestPomonaClient_FetchImage_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("unused"))
	}))
	defer server.Close()

	c := NewPomonaClient(testConfig(server.URL), nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchImage(ctx, domain.DownloadLink(server.URL+"/pom/download.xhtml?id=1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPomonaClient_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	cfg.RetryMaxWait = 1

	c := NewPomonaClient(cfg, nil)
	defer c.Close()

	img, err := c.FetchImage(context.Background(), domain.DownloadLink(server.URL+"/pom/download.xhtml?id=1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, []byte("jpeg"), img.Body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPomonaClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	cfg.RetryMaxWait = 1

	c := NewPomonaClient(cfg, nil)
	defer c.Close()

	img, err := c.FetchImage(context.Background(), domain.DownloadLink(server.URL+"/pom/download.xhtml?id=1"))
	require.NoError(t, err)
	assert.False(t, img.OK())
	assert.Equal(t, http.StatusServiceUnavailable, img.StatusCode)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = c.FetchListing(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPomonaClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 1

	c := NewPomonaClient(cfg, nil)
	defer c.Close()

	start := time.Now()
	_, err := c.FetchImage(context.Background(), domain.DownloadLink(server.URL+"/pom/download.xhtml?id=1"))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)

	_, err = c.FetchListing(context.Background(), 0)
	assert.Error(t, err)
}

func TestPomonaClient_RequestCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingHTML)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRequestsPerSecond = 20

	c := NewPomonaClient(cfg, nil)
	defer c.Close()

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := c.FetchListing(context.Background(), domain.PageSegment(i*20))
		require.NoError(t, err)
	}

	// 20 req/s leaves at least 50ms between consecutive requests
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}
