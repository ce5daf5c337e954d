// Package router wires the search API routes and applies the middleware
// chain (RequestID → CORS → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/article-search/pkg/middleware"
)

// Options are the cross-cutting settings of the HTTP surface.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// New builds the full HTTP handler.
//
// Route table:
//
//	GET    /health/live                → liveness
//	GET    /health/ready               → readiness (index loaded)
//	GET    /api/v1/search              → ranked articles
//	GET    /api/v1/index/stats         → index summary
//	POST   /api/v1/index/rebuild       → corpus rebuild
//	POST   /api/v1/index/save          → persist snapshot
//	PUT    /api/v1/articles/{id}/index → reindex one article
//	DELETE /api/v1/articles/{id}/index → unindex one article
//
// Health probes sit outside the timeout and metrics middleware.
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(pkgmw.RequestID)
	r.Use(pkgmw.CORS(opts.CORSOrigins))

	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	r.Group(func(r chi.Router) {
		r.Use(pkgmw.Metrics(m))
		if opts.RequestTimeout > 0 {
			r.Use(pkgmw.Timeout(opts.RequestTimeout))
		}
		h.Routes(r)
	})
	return r
}
