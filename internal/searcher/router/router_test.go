package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/article-search/pkg/middleware"
)

func TestRouter(t *testing.T) {
	ctx := context.Background()
	store, err := article.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	records, err := snapshot.OpenBunt(":memory:", "idx:")
	if err != nil {
		t.Fatalf("OpenBunt: %v", err)
	}
	defer records.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	idx := indexer.New(config.IndexConfig{PageSize: 10, SnapshotID: 1}, store, records, m)

	checker := health.NewChecker(time.Second)
	checker.Register("index", true, health.Ready(idx.Ready, "index loading"))
	h := handler.New(idx, store, 10, 100)
	srv := httptest.NewServer(New(h, checker, m, Options{CORSOrigins: []string{"http://localhost:3000"}}))
	defer srv.Close()

	send := func(method, path string, header map[string]string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, srv.URL+path, nil)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp
	}
	get := func(path string, header map[string]string) *http.Response {
		t.Helper()
		return send("GET", path, header)
	}

	if resp := get("/health/ready", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready before Create: status = %d, want 503", resp.StatusCode)
	}
	if err := idx.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp := get("/health/ready", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("ready after Create: status = %d, want 200", resp.StatusCode)
	}
	if resp := get("/health/live", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("live: status = %d, want 200", resp.StatusCode)
	}

	resp := get("/api/v1/search?q=go", map[string]string{
		pkgmw.RequestIDHeader: "req-123",
		"Origin":              "http://localhost:3000",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("search: status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(pkgmw.RequestIDHeader); got != "req-123" {
		t.Errorf("request id header = %q, want req-123", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("CORS origin = %q", got)
	}

	resp = get("/api/v1/search?q=go", map[string]string{"Origin": "https://evil.example.com"})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS allowed unknown origin: %q", got)
	}
	if resp := send("DELETE", "/api/v1/articles/7/index", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", resp.StatusCode)
	}

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",path="/api/v1/search",status="200"} 2`,
		`path="/api/v1/articles/{id}/index"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
