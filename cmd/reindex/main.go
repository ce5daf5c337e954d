// Command reindex maintains the search index offline.
//
// It optionally imports a JSON feed dump into the article store, rebuilds the
// index from the store, saves the snapshot and can run a query against the
// fresh index. With Kafka enabled, imported articles are also announced on
// the article events topic so a running searcher picks them up.
//
// Usage:
//
//	go run ./cmd/reindex [-config reader.yaml] [-import feed.json] [-query "go channels"] [-limit 10]
//
// The import file has the shape
//
//	{"sites": [{"title": "...", "url": "...", "articles": [{"title": "...", "content": "<p>...</p>"}]}]}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/logger"
)

type importFile struct {
	Sites []struct {
		Title    string `json:"title"`
		URL      string `json:"url"`
		Articles []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"articles"`
	} `json:"sites"`
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	importPath := flag.String("import", "", "JSON file of sites and articles to add before rebuilding")
	query := flag.String("query", "", "query to run against the rebuilt index")
	limit := flag.Int("limit", 10, "maximum results for -query")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("reindex", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articles, err := article.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open article store", "error", err)
		os.Exit(1)
	}
	defer articles.Close()

	if *importPath != "" {
		added, err := importArticles(ctx, articles, *importPath)
		if err != nil {
			slog.Error("import failed", "file", *importPath, "error", err)
			os.Exit(1)
		}
		slog.Info("articles imported", "file", *importPath, "count", len(added))
		if cfg.Kafka.Enabled && len(added) > 0 {
			if err := announce(ctx, cfg, added); err != nil {
				slog.Warn("failed to publish article events", "error", err)
			}
		}
	}

	records, err := snapshot.Open(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer records.Close()

	idx := indexer.New(cfg.Index, articles, records, nil)
	start := time.Now()
	if err := idx.Rebuild(ctx); err != nil {
		slog.Error("rebuild failed", "error", err)
		os.Exit(1)
	}
	if err := idx.Flush(ctx); err != nil {
		slog.Error("saving snapshot failed", "error", err)
		os.Exit(1)
	}
	stats := idx.Stats()
	slog.Info("index rebuilt",
		"documents", stats.Documents,
		"nodes", stats.Nodes,
		"duration", time.Since(start),
	)

	if *query == "" {
		return
	}
	for rank, id := range idx.Search(*query, *limit) {
		a, err := articles.GetArticleByID(ctx, id)
		if err != nil {
			fmt.Printf("%2d. #%d (missing: %v)\n", rank+1, id, err)
			continue
		}
		fmt.Printf("%2d. #%d %s\n", rank+1, a.ID, a.Title)
	}
}

func importArticles(ctx context.Context, store *article.Store, path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f importFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var added []int
	for _, s := range f.Sites {
		site := &article.Site{Title: s.Title, URL: s.URL}
		if err := store.InsertSite(ctx, site); err != nil {
			return added, fmt.Errorf("inserting site %q: %w", s.Title, err)
		}
		for _, in := range s.Articles {
			a := &article.Article{SiteID: site.ID, Title: in.Title, Content: in.Content}
			if err := store.InsertArticle(ctx, a); err != nil {
				return added, fmt.Errorf("inserting article %q: %w", in.Title, err)
			}
			added = append(added, a.ID)
		}
	}
	return added, nil
}

func announce(ctx context.Context, cfg *config.Config, ids []int) error {
	pub := consumer.NewPublisher(cfg.Kafka)
	defer pub.Close()

	events := make([]consumer.ArticleEvent, 0, len(ids))
	for _, id := range ids {
		events = append(events, consumer.ArticleEvent{Type: consumer.EventArticleAdded, ArticleID: id})
	}
	return pub.Publish(ctx, events...)
}
