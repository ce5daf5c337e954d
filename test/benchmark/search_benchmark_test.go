package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
)

// sliceCorpus serves a generated corpus from memory as a single site.
type sliceCorpus []article.Article

func (c sliceCorpus) ListSites(ctx context.Context) ([]article.Site, error) {
	return []article.Site{{ID: 1, Title: "bench"}}, nil
}

func (c sliceCorpus) ListArticlesPage(ctx context.Context, siteID, offset, pageSize int) ([]article.Article, error) {
	if offset >= len(c) {
		return nil, nil
	}
	end := min(offset+pageSize, len(c))
	return c[offset:end], nil
}

func corpus(n int) sliceCorpus {
	c := make(sliceCorpus, n)
	for i := range c {
		c[i] = article.Article{
			ID:      i + 1,
			SiteID:  1,
			Title:   fmt.Sprintf("notes on %s and %s", vocabulary[i%len(vocabulary)], vocabulary[(i+1)%len(vocabulary)]),
			Content: fmt.Sprintf("<p>this article covers %s %s %s in production systems</p>",
				vocabulary[i%len(vocabulary)], vocabulary[(i+2)%len(vocabulary)], vocabulary[(i+3)%len(vocabulary)]),
		}
	}
	return c
}

func readyIndex(b *testing.B, docs int) *indexer.SearchIndex {
	b.Helper()
	records, err := snapshot.NewFileStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { records.Close() })
	idx := indexer.New(config.IndexConfig{PageSize: 500, SnapshotID: 1, SaveAttempts: 1}, corpus(docs), records, nil)
	if err := idx.Rebuild(context.Background()); err != nil {
		b.Fatal(err)
	}
	return idx
}

// BenchmarkSearch measures ranked search latency for queries of varying
// breadth over 10 000 articles.
func BenchmarkSearch(b *testing.B) {
	idx := readyIndex(b, 10000)
	queries := []struct {
		name  string
		query string
	}{
		{"single_term", "radix"},
		{"prefix", "dist"},
		{"two_terms", "search ranking"},
		{"stopwords_only", "the and of"},
		{"long", "distributed search analytics platform indexing query engine ranking"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ids := idx.Search(q.query, 20)
				_ = ids
			}
		})
	}
}

// BenchmarkSearchParallel measures concurrent read throughput against the
// single index lock.
func BenchmarkSearchParallel(b *testing.B) {
	idx := readyIndex(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ids := idx.Search("search ranking", 20)
			_ = ids
		}
	})
}

// BenchmarkRebuild measures a full corpus scan into a fresh tree, including
// the snapshot save that follows it.
func BenchmarkRebuild(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			records, err := snapshot.NewFileStore(b.TempDir())
			if err != nil {
				b.Fatal(err)
			}
			defer records.Close()
			idx := indexer.New(config.IndexConfig{PageSize: 500, SnapshotID: 1, SaveAttempts: 1}, corpus(size), records, nil)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := idx.Rebuild(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkUpdate measures replacing one article's postings.
func BenchmarkUpdate(b *testing.B) {
	idx := readyIndex(b, 5000)
	docs := corpus(5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Update(docs[i%len(docs)])
	}
}

// BenchmarkCreateFromSnapshot measures startup from a saved file snapshot.
func BenchmarkCreateFromSnapshot(b *testing.B) {
	dir := b.TempDir()
	records, err := snapshot.NewFileStore(dir)
	if err != nil {
		b.Fatal(err)
	}
	defer records.Close()
	cfg := config.IndexConfig{PageSize: 500, SnapshotID: 1, SaveAttempts: 1}
	if err := indexer.New(cfg, corpus(5000), records, nil).Rebuild(context.Background()); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx := indexer.New(cfg, sliceCorpus(nil), records, nil)
		if err := idx.Create(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
