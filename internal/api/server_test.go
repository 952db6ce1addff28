package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hnproxy/internal/cache"
	"hnproxy/internal/config"
	"hnproxy/internal/models"
	"hnproxy/internal/news"
	"hnproxy/internal/poller"

	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
)

type stubFetcher struct {
	mu      sync.Mutex
	ids     []int
	items   map[int]*models.Story
	err     error
	fetches int
}

func (f *stubFetcher) NewStoryIDs(ctx context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

func (f *stubFetcher) Item(ctx context.Context, id int) (*models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.items[id], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		RequestTimeout: 5 * time.Second,
		EnableSwagger:  false,
		Security: config.SecurityConfig{
			EnableRateLimit:       false,
			EnableCORS:            true,
			AllowedOrigins:        []string{"http://localhost:4200"},
			EnableSecurityHeaders: true,
			MaxRequestSize:        1 << 20,
			EnableRequestID:       true,
		},
	}
}

func newTestServer(f *stubFetcher) *Server {
	gin.SetMode(gin.TestMode)

	cacheManager := cache.NewManager(5 * time.Minute)
	svc := news.NewService(cacheManager, f, news.Options{})
	p := poller.New(svc, time.Minute)

	return NewServer(svc, p, testConfig())
}

func sampleFetcher() *stubFetcher {
	return &stubFetcher{
		ids: []int{123, 124, 125},
		items: map[int]*models.Story{
			123: {ID: 123, Title: "Test Story", URL: "http://example.com", By: "alice", Score: 10, Time: 1700000000},
			124: {ID: 124, Title: "Ask HN: no link"},
			125: {ID: 125, Title: "Another story", URL: "http://example.com/2"},
		},
	}
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

type pagedResponse struct {
	Items       []models.Story `json:"items"`
	TotalCount  int            `json:"totalCount"`
	CurrentPage int            `json:"currentPage"`
	PageSize    int            `json:"pageSize"`
	TotalPages  int            `json:"totalPages"`
}

func TestServer_New(t *testing.T) {
	server := newTestServer(sampleFetcher())
	if server == nil {
		t.Fatal("Expected server to be created, got nil")
	}

	if server.router == nil {
		t.Error("Expected router to be initialized")
	}
}

func TestServer_HealthCheck(t *testing.T) {
	server := newTestServer(sampleFetcher())

	w := doRequest(server, "GET", "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for health endpoint, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "hnproxy" {
		t.Errorf("Unexpected health body %v", body)
	}
	if body["poller_active"] != false {
		t.Errorf("Expected poller_active false, got %v", body["poller_active"])
	}
}

func TestServer_GetNewestStories(t *testing.T) {
	server := newTestServer(&stubFetcher{
		ids: []int{123},
		items: map[int]*models.Story{
			123: {ID: 123, Title: "Test Story", URL: "http://example.com"},
		},
	})

	w := doRequest(server, "GET", "/api/news/newest?page=1&pageSize=10")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result pagedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(result.Items) != 1 || result.Items[0].ID != 123 || result.Items[0].Title != "Test Story" {
		t.Errorf("Expected story 123, got %+v", result.Items)
	}
	if result.TotalCount != 1 || result.CurrentPage != 1 || result.PageSize != 10 || result.TotalPages != 1 {
		t.Errorf("Unexpected paging %+v", result)
	}
}

func TestServer_GetNewestStories_Defaults(t *testing.T) {
	server := newTestServer(sampleFetcher())

	for _, path := range []string{"/api/news/newest", "/api/news/newest?page=0&pageSize=-5"} {
		w := doRequest(server, "GET", path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}

		var result pagedResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if result.CurrentPage != 1 || result.PageSize != 10 {
			t.Errorf("%s: expected page 1 size 10, got %d/%d", path, result.CurrentPage, result.PageSize)
		}
		if result.TotalCount != 2 {
			t.Errorf("%s: expected 2 linked stories, got %d", path, result.TotalCount)
		}
		if result.Items[0].ID != 123 || result.Items[1].ID != 125 {
			t.Errorf("%s: expected stories 123 and 125 in order, got %+v", path, result.Items)
		}
	}
}

func TestServer_GetNewestStories_Query(t *testing.T) {
	server := newTestServer(sampleFetcher())

	w := doRequest(server, "GET", "/api/news/newest?query=ANOTHER")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var result pagedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != 125 {
		t.Errorf("Expected only story 125, got %+v", result.Items)
	}
}

func TestServer_GetNewestStories_NotFound(t *testing.T) {
	server := newTestServer(&stubFetcher{ids: []int{}})

	w := doRequest(server, "GET", "/api/news/newest")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for empty list, got %d", w.Code)
	}

	// A page past the end is also empty
	server = newTestServer(sampleFetcher())
	w = doRequest(server, "GET", "/api/news/newest?page=5")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for page past the end, got %d", w.Code)
	}

	w = doRequest(server, "GET", "/api/news/newest?query=nothing-matches")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unmatched query, got %d", w.Code)
	}
}

func TestServer_GetNewestStories_UpstreamFailure(t *testing.T) {
	server := newTestServer(&stubFetcher{err: errors.New("dial tcp: connection refused")})

	w := doRequest(server, "GET", "/api/news/newest")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !strings.HasPrefix(body["error"], "Internal server error: ") || !strings.Contains(body["error"], "connection refused") {
		t.Errorf("Unexpected error body %q", body["error"])
	}
}

func TestServer_GetNewestStories_InvalidParams(t *testing.T) {
	f := sampleFetcher()
	server := newTestServer(f)

	w := doRequest(server, "GET", "/api/news/newest?page=first")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if f.fetches != 0 {
		t.Errorf("Expected no upstream calls for rejected request, got %d", f.fetches)
	}
}

func TestServer_GetNewestStories_UsesCache(t *testing.T) {
	f := sampleFetcher()
	server := newTestServer(f)

	first := doRequest(server, "GET", "/api/news/newest")
	fetches := f.fetches

	// Story 124 has no URL, is never cached, and is fetched again.
	second := doRequest(server, "GET", "/api/news/newest")
	if got := f.fetches - fetches; got != 1 {
		t.Errorf("Expected only the linkless story to be refetched, got %d new fetches", got)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("Expected identical bodies, got %s and %s", first.Body.String(), second.Body.String())
	}
}

func TestServer_GetNewestStories_LinkedStoriesServedFromCache(t *testing.T) {
	f := &stubFetcher{
		ids: []int{123, 125},
		items: map[int]*models.Story{
			123: {ID: 123, Title: "Test Story", URL: "http://example.com"},
			125: {ID: 125, Title: "Another story", URL: "http://example.com/2"},
		},
	}
	server := newTestServer(f)

	doRequest(server, "GET", "/api/news/newest")
	fetches := f.fetches

	w := doRequest(server, "GET", "/api/news/newest")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if f.fetches != fetches {
		t.Errorf("Expected second request to be served from cache, got %d new fetches", f.fetches-fetches)
	}
}

func TestServer_GetNewestStoriesRSS(t *testing.T) {
	server := newTestServer(sampleFetcher())

	w := doRequest(server, "GET", "/api/news/newest/rss")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Expected RSS content type, got %q", ct)
	}

	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("Expected valid RSS, got %v", err)
	}
	if feed.FeedType != "rss" {
		t.Errorf("Expected rss feed type, got %s", feed.FeedType)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(feed.Items))
	}
	if feed.Items[0].Title != "Test Story" || feed.Items[0].Link != "http://example.com" {
		t.Errorf("Unexpected first item %q %q", feed.Items[0].Title, feed.Items[0].Link)
	}
	if feed.Items[1].Title != "Another story" {
		t.Errorf("Unexpected second item %q", feed.Items[1].Title)
	}
}

func TestServer_GetNewestStoriesRSS_NotFound(t *testing.T) {
	server := newTestServer(&stubFetcher{ids: []int{}})

	w := doRequest(server, "GET", "/api/news/newest/rss")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_RefreshStories(t *testing.T) {
	f := sampleFetcher()
	server := newTestServer(f)

	w := doRequest(server, "POST", "/api/news/refresh")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	f.mu.Lock()
	f.err = errors.New("upstream down")
	f.mu.Unlock()

	w = doRequest(server, "POST", "/api/news/refresh")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestServer_PollerEndpoints(t *testing.T) {
	server := newTestServer(sampleFetcher())

	w := doRequest(server, "GET", "/api/poller/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status poller.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if status.IsPolling {
		t.Error("Expected poller to be idle")
	}

	w = doRequest(server, "POST", "/api/poller/force-poll")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for force poll, got %d", w.Code)
	}

	w = doRequest(server, "GET", "/api/poller/last-polled")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var lastPolled struct {
		LastPolled time.Time `json:"last_polled"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &lastPolled); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if lastPolled.LastPolled.IsZero() {
		t.Error("Expected last polled time after force poll")
	}
}

func TestServer_StartWithContext(t *testing.T) {
	server := newTestServer(sampleFetcher())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.StartWithContext(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}
