// Package handler serves the search index over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/logger"
)

// Index is the search index as the API uses it.
type Index interface {
	Search(query string, limit int) []int
	Update(a article.Article)
	Delete(ids ...int)
	Rebuild(ctx context.Context) error
	Save(ctx context.Context) error
	Ready() bool
	Stats() indexer.Stats
}

// Articles resolves ids returned by the index.
type Articles interface {
	GetArticleByID(ctx context.Context, id int) (article.Article, error)
}

// SearchHit is one ranked result. Content is left out; clients fetch the
// full article separately.
type SearchHit struct {
	ID     int    `json:"id"`
	SiteID int    `json:"siteId"`
	Title  string `json:"title"`
	IsRead bool   `json:"isRead"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query     string      `json:"query"`
	Results   []SearchHit `json:"results"`
	LatencyMs int64       `json:"latencyMs"`
}

type Handler struct {
	index        Index
	articles     Articles
	defaultLimit int
	maxResults   int
	rebuilds     sync.WaitGroup
	logger       *slog.Logger
}

func New(idx Index, articles Articles, defaultLimit, maxResults int) *Handler {
	return &Handler{
		index:        idx,
		articles:     articles,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Routes mounts the API on r.
//
//	GET    /api/v1/search?q=&limit=        ranked articles
//	GET    /api/v1/index/stats             index summary
//	POST   /api/v1/index/rebuild           start a corpus rebuild (202)
//	POST   /api/v1/index/save              persist the index now
//	PUT    /api/v1/articles/{id}/index     (re)index one article
//	DELETE /api/v1/articles/{id}/index     drop one article from the index
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Route("/index", func(r chi.Router) {
			r.Get("/stats", h.Stats)
			r.Post("/rebuild", h.Rebuild)
			r.Post("/save", h.Save)
		})
		r.Put("/articles/{id}/index", h.IndexArticle)
		r.Delete("/articles/{id}/index", h.RemoveArticle)
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if !h.index.Ready() {
		h.writeError(w, apperrors.ErrIndexNotReady)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.Invalid("query parameter 'q' is required"))
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.Invalid("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > h.maxResults {
		limit = h.maxResults
	}

	// Resolve down the full ranking so articles missing from the store do
	// not shorten the page.
	ids := h.index.Search(query, 0)
	hits := make([]SearchHit, 0, min(limit, len(ids)))
	for _, id := range ids {
		if len(hits) == limit {
			break
		}
		a, err := h.articles.GetArticleByID(ctx, id)
		if errors.Is(err, apperrors.ErrArticleNotFound) {
			log.Warn("index references missing article", "doc_id", id)
			continue
		}
		if err != nil {
			log.Error("resolving search hit failed", "doc_id", id, "error", err)
			h.writeError(w, err)
			return
		}
		hits = append(hits, SearchHit{ID: a.ID, SiteID: a.SiteID, Title: a.Title, IsRead: a.IsRead})
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"returned", len(hits),
		"latency_ms", latencyMs,
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: hits, LatencyMs: latencyMs})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

// Rebuild starts a rebuild detached from the request and answers at once.
// Overlapping requests join the rebuild already running.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	h.rebuilds.Add(1)
	go func() {
		defer h.rebuilds.Done()
		if err := h.index.Rebuild(ctx); err != nil {
			logger.FromContext(ctx).Error("rebuild failed", "error", err)
		}
	}()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuilding"})
}

// Wait blocks until rebuilds started through the API have finished.
func (h *Handler) Wait() {
	h.rebuilds.Wait()
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if !h.index.Ready() {
		h.writeError(w, apperrors.ErrIndexNotReady)
		return
	}
	if err := h.index.Save(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("index save failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// IndexArticle replaces the indexed text of one article with its current
// stored version.
func (h *Handler) IndexArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}
	if !h.index.Ready() {
		h.writeError(w, apperrors.ErrIndexNotReady)
		return
	}
	a, err := h.articles.GetArticleByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.index.Update(a)
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "indexed", "id": id})
}

func (h *Handler) RemoveArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}
	if !h.index.Ready() {
		h.writeError(w, apperrors.ErrIndexNotReady)
		return
	}
	h.index.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) articleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.writeError(w, apperrors.Invalid("article id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.Message(err)})
}
