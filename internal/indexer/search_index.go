// Package indexer owns the in-memory search index over the article corpus:
// term extraction, weighted prefix queries, corpus rebuilds and snapshot
// persistence.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/htmltext"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/radix"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/tracing"
)

// Corpus is the part of the article store a rebuild reads.
type Corpus interface {
	ListSites(ctx context.Context) ([]article.Site, error)
	ListArticlesPage(ctx context.Context, siteID, offset, pageSize int) ([]article.Article, error)
}

// State is the lifecycle phase of a SearchIndex.
type State int

const (
	StateUnloaded State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time summary of the index.
type Stats struct {
	State     string    `json:"state"`
	Nodes     int       `json:"nodes"`
	Documents int       `json:"documents"`
	Dirty     bool      `json:"dirty"`
	LastSaved time.Time `json:"lastSaved"`
}

// SearchIndex guards one radix tree with a single mutex. Every mutation bumps
// gen; savedGen is the gen last written to the snapshot store.
//
// While a rebuild scans the corpus, touched records the latest version of
// every article mutated on the live tree (nil for a delete) so the change
// survives the swap.
type SearchIndex struct {
	mu        sync.Mutex
	tree      *radix.Tree
	state     State
	gen       uint64
	savedGen  uint64
	lastSaved time.Time
	touched   map[int]*article.Article

	cfg      config.IndexConfig
	corpus   Corpus
	records  snapshot.Store
	metrics  *metrics.Metrics
	rebuilds singleflight.Group
	logger   *slog.Logger
}

// New returns an Unloaded index. A nil m registers metrics with a private
// registry.
func New(cfg config.IndexConfig, corpus Corpus, records snapshot.Store, m *metrics.Metrics) *SearchIndex {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &SearchIndex{
		tree:    radix.New(),
		cfg:     cfg,
		corpus:  corpus,
		records: records,
		metrics: m,
		logger:  slog.Default().With("component", "search-index"),
	}
}

// Create populates the index from the persisted snapshot, or rebuilds it
// from the corpus when the snapshot is missing, unreadable or a rebuild is
// forced. The index is Ready once Create returns nil.
func (si *SearchIndex) Create(ctx context.Context) error {
	if si.cfg.ForceRebuild {
		si.logger.Info("forced rebuild requested")
		return si.Rebuild(ctx)
	}
	tree, err := si.load(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			si.logger.Info("no index snapshot found, rebuilding", "snapshot_id", si.cfg.SnapshotID)
		} else {
			si.logger.Warn("index snapshot unusable, rebuilding", "snapshot_id", si.cfg.SnapshotID, "error", err)
		}
		return si.Rebuild(ctx)
	}

	si.mu.Lock()
	si.tree = tree
	si.state = StateReady
	si.gen++
	si.savedGen = si.gen
	si.lastSaved = time.Now()
	nodes := tree.NodeCount()
	si.mu.Unlock()

	si.metrics.IndexNodes.Set(float64(nodes))
	si.logger.Info("index loaded from snapshot", "snapshot_id", si.cfg.SnapshotID, "nodes", nodes)
	return nil
}

func (si *SearchIndex) load(ctx context.Context) (*radix.Tree, error) {
	rec, err := si.records.Load(ctx, si.cfg.SnapshotID)
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			status = "not_found"
		}
		si.metrics.SnapshotOpsTotal.WithLabelValues("load", status).Inc()
		return nil, err
	}
	tree, err := radix.Deserialize(rec.Serialized)
	if err != nil {
		si.metrics.SnapshotOpsTotal.WithLabelValues("load", "corrupt").Inc()
		return nil, fmt.Errorf("decoding snapshot %d: %w", rec.ID, err)
	}
	si.metrics.SnapshotOpsTotal.WithLabelValues("load", "ok").Inc()
	return tree, nil
}

// Rebuild re-indexes the whole corpus into a fresh tree and swaps it in.
// Concurrent calls share one scan. A failure to persist the new tree is
// logged and left to the flush loop; only corpus errors are returned.
func (si *SearchIndex) Rebuild(ctx context.Context) error {
	_, err, shared := si.rebuilds.Do("rebuild", func() (any, error) {
		return nil, si.rebuild(ctx)
	})
	if shared {
		si.logger.Debug("joined in-flight rebuild")
	}
	return err
}

func (si *SearchIndex) rebuild(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "index.rebuild")
	defer span.Log(logger.FromContext(ctx))
	defer span.End()

	start := time.Now()
	tree := radix.New()

	si.mu.Lock()
	si.touched = make(map[int]*article.Article)
	si.mu.Unlock()
	defer func() {
		si.mu.Lock()
		si.touched = nil
		si.mu.Unlock()
	}()

	sites, err := si.corpus.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("listing sites: %w", err)
	}
	docs := 0
	for _, site := range sites {
		n, err := si.indexSite(ctx, tree, site)
		if err != nil {
			return err
		}
		docs += n
	}
	span.SetAttr("sites", len(sites))
	span.SetAttr("docs", docs)

	si.mu.Lock()
	replayed := len(si.touched)
	for id, a := range si.touched {
		tree.Delete(id)
		if a != nil {
			addArticle(tree, *a)
		}
	}
	si.touched = nil
	si.tree = tree
	si.state = StateReady
	si.gen++
	si.mu.Unlock()
	span.SetAttr("replayed", replayed)

	elapsed := time.Since(start)
	si.metrics.RebuildDuration.Observe(elapsed.Seconds())
	si.metrics.DocsIndexedTotal.Add(float64(docs))
	si.logger.Info("index rebuilt",
		"sites", len(sites),
		"docs", docs,
		"replayed", replayed,
		"nodes", tree.NodeCount(),
		"duration_ms", elapsed.Milliseconds(),
	)

	saveCtx, saveSpan := tracing.StartChildSpan(ctx, "snapshot.save")
	err = si.Save(saveCtx)
	saveSpan.End()
	if err != nil {
		saveSpan.SetAttr("error", err.Error())
		si.logger.Warn("rebuilt index not persisted, will retry on next flush", "error", err)
	}
	return nil
}

// indexSite pages through one site's articles into tree.
func (si *SearchIndex) indexSite(ctx context.Context, tree *radix.Tree, site article.Site) (int, error) {
	_, span := tracing.StartChildSpan(ctx, "corpus.site")
	defer span.End()
	span.SetAttr("site_id", site.ID)

	docs := 0
	for offset := 0; ; offset += si.cfg.PageSize {
		page, err := si.corpus.ListArticlesPage(ctx, site.ID, offset, si.cfg.PageSize)
		if err != nil {
			return docs, fmt.Errorf("listing articles of site %d at offset %d: %w", site.ID, offset, err)
		}
		for _, a := range page {
			addArticle(tree, a)
		}
		docs += len(page)
		if len(page) < si.cfg.PageSize {
			break
		}
	}
	span.SetAttr("docs", docs)
	return docs, nil
}

// addArticle inserts title terms with title provenance and the plain-text
// body terms with body provenance.
func addArticle(tree *radix.Tree, a article.Article) {
	for _, term := range tokenizer.Tokenize(a.Title) {
		tree.Insert(term, a.ID, true)
	}
	for _, term := range tokenizer.Tokenize(htmltext.Text(a.Content)) {
		tree.Insert(term, a.ID, false)
	}
}

// Add indexes an article. Adding the same article twice doubles its counts,
// except across a rebuild swap, where the article's last version is indexed
// once.
func (si *SearchIndex) Add(a article.Article) {
	si.mu.Lock()
	addArticle(si.tree, a)
	si.touch(a.ID, &a)
	si.gen++
	si.mu.Unlock()

	si.metrics.DocsIndexedTotal.Inc()
	si.logger.Debug("article indexed", "doc_id", a.ID)
}

// Update replaces whatever is indexed for a.ID with a's current text.
func (si *SearchIndex) Update(a article.Article) {
	si.mu.Lock()
	si.tree.Delete(a.ID)
	addArticle(si.tree, a)
	si.touch(a.ID, &a)
	si.gen++
	si.mu.Unlock()

	si.logger.Debug("article reindexed", "doc_id", a.ID)
}

// Delete removes every posting of the given documents. Unknown ids are
// ignored.
func (si *SearchIndex) Delete(ids ...int) {
	if len(ids) == 0 {
		return
	}
	si.mu.Lock()
	for _, id := range ids {
		si.tree.Delete(id)
		si.touch(id, nil)
	}
	si.gen++
	si.mu.Unlock()

	si.metrics.DocsRemovedTotal.Add(float64(len(ids)))
	si.logger.Debug("articles removed", "doc_ids", ids)
}

// touch records a mutation for replay onto a tree being rebuilt. Callers
// hold si.mu.
func (si *SearchIndex) touch(id int, a *article.Article) {
	if si.touched != nil {
		si.touched[id] = a
	}
}

// Get returns document ids matching any whitespace-separated term of query
// as a prefix, best first. Each matched posting adds 2*title + body to its
// document's score; ties keep the order in which documents were first
// scored.
func (si *SearchIndex) Get(query string) []int {
	terms := tokenizer.QueryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[int]int)
	var order []int
	si.mu.Lock()
	for _, term := range terms {
		postings, ok := si.tree.PrefixSearch(term, false)
		if !ok {
			continue
		}
		for _, p := range postings {
			if _, seen := scores[p.DocID]; !seen {
				order = append(order, p.DocID)
			}
			scores[p.DocID] += p.Score()
		}
	}
	si.mu.Unlock()

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order
}

// Search is Get truncated to limit results; limit <= 0 means no limit.
func (si *SearchIndex) Search(query string, limit int) []int {
	start := time.Now()
	ids := si.Get(query)
	si.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	si.metrics.SearchResultsCount.Observe(float64(len(ids)))
	if len(ids) == 0 {
		si.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	} else {
		si.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// Save serializes the tree and upserts it under the configured snapshot id.
// The store write happens outside the lock, so queries are not blocked by
// slow storage.
func (si *SearchIndex) Save(ctx context.Context) error {
	si.mu.Lock()
	rec := &snapshot.Record{ID: si.cfg.SnapshotID, Serialized: si.tree.Serialize()}
	gen := si.gen
	si.mu.Unlock()

	policy := resilience.RetryPolicy{
		Attempts: si.cfg.SaveAttempts,
		Backoff:  si.cfg.SaveBackoff,
		Permanent: func(err error) bool {
			return errors.Is(err, apperrors.ErrStoreUnavailable)
		},
		OnRetry: func(int, error) {
			si.metrics.SnapshotOpsTotal.WithLabelValues("save", "retry").Inc()
		},
	}
	err := resilience.Retry(ctx, "index snapshot save", policy, func(ctx context.Context) error {
		return si.records.Save(ctx, rec)
	})
	if err != nil {
		si.metrics.SnapshotOpsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("saving index snapshot %d: %w", rec.ID, err)
	}

	si.mu.Lock()
	if gen > si.savedGen {
		si.savedGen = gen
	}
	si.lastSaved = time.Now()
	si.mu.Unlock()

	si.metrics.SnapshotOpsTotal.WithLabelValues("save", "ok").Inc()
	si.metrics.IndexNodes.Set(float64(rec.Len()))
	si.logger.Info("index snapshot saved", "snapshot_id", rec.ID, "nodes", rec.Len())
	return nil
}

// Dirty reports whether the index has changes not yet persisted.
func (si *SearchIndex) Dirty() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.gen != si.savedGen
}

// Flush saves only when there are unsaved changes.
func (si *SearchIndex) Flush(ctx context.Context) error {
	if !si.Dirty() {
		return nil
	}
	return si.Save(ctx)
}

// RunFlushLoop persists pending changes every interval until ctx is done,
// then flushes once more. It blocks.
func (si *SearchIndex) RunFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			si.logger.Info("flush loop stopping, performing final flush")
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := si.Flush(finalCtx); err != nil {
				si.logger.Error("final flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := si.Flush(ctx); err != nil {
				si.logger.Error("periodic flush failed", "error", err)
			}
		}
	}
}

// State returns the lifecycle phase.
func (si *SearchIndex) State() State {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.state
}

// Ready reports whether Create has completed.
func (si *SearchIndex) Ready() bool {
	return si.State() == StateReady
}

// Stats walks the tree; it holds the lock for the whole walk.
func (si *SearchIndex) Stats() Stats {
	si.mu.Lock()
	defer si.mu.Unlock()
	nodes := 0
	docs := make(map[int]struct{})
	si.tree.Walk(func(_ string, n *radix.Node) bool {
		nodes++
		for _, p := range n.Postings() {
			docs[p.DocID] = struct{}{}
		}
		return true
	})
	return Stats{
		State:     si.state.String(),
		Nodes:     nodes,
		Documents: len(docs),
		Dirty:     si.gen != si.savedGen,
		LastSaved: si.lastSaved,
	}
}
