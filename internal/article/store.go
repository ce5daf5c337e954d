// Package article is the article store the search index reads from. The
// index only ever holds article ids; titles and bodies live here.
package article

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/postgres"
	_ "github.com/glebarez/sqlite"
)

// Site is a subscribed feed.
type Site struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Article is one stored entry. Content may be HTML.
type Article struct {
	ID      int    `json:"id"`
	SiteID  int    `json:"siteId"`
	Title   string `json:"title"`
	Content string `json:"content"`
	IsRead  bool   `json:"isRead"`
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url   TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL REFERENCES sites(id),
		title   TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_site_id ON articles(site_id, id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id    SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		url   TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id      SERIAL PRIMARY KEY,
		site_id INTEGER NOT NULL REFERENCES sites(id),
		title   TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		is_read BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_site_id ON articles(site_id, id)`,
}

// Store serves sites and articles from a SQL database.
type Store struct {
	db       *sql.DB
	sites    *Repository[Site]
	articles *Repository[Article]
}

func scanSite(s Scanner) (Site, error) {
	var site Site
	err := s.Scan(&site.ID, &site.Title, &site.URL)
	return site, err
}

func scanArticle(s Scanner) (Article, error) {
	var a Article
	err := s.Scan(&a.ID, &a.SiteID, &a.Title, &a.Content, &a.IsRead)
	return a, err
}

func newStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:       db,
		sites:    NewRepository(db, dialect, "sites", []string{"id", "title", "url"}, scanSite),
		articles: NewRepository(db, dialect, "articles", []string{"id", "site_id", "title", "content", "is_read"}, scanArticle),
	}
}

// OpenSQLite opens (or creates) an embedded article database. Path
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating article store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening article store %s: %w", path, err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying article schema: %w", err)
		}
	}
	return newStore(db, DialectSQLite), nil
}

// NewPostgres uses an existing Postgres client and creates the tables if
// missing. Closing the Store closes the client's pool.
func NewPostgres(ctx context.Context, client *postgres.Client) (*Store, error) {
	if err := client.Migrate(ctx, "articles", postgresSchema...); err != nil {
		return nil, fmt.Errorf("applying article schema: %w", err)
	}
	return newStore(client.DB, DialectPostgres), nil
}

// Open builds the Store selected by cfg.Articles.Driver.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Articles.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Articles.Path)
	case config.DriverPostgres:
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting article postgres: %w", err)
		}
		s, err := NewPostgres(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown article store driver %q", cfg.Articles.Driver)
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListSites returns every site ordered by id.
func (s *Store) ListSites(ctx context.Context) ([]Site, error) {
	return s.sites.List(ctx, "ORDER BY id")
}

// ListArticlesPage returns up to pageSize articles of one site starting at
// offset. Ordering by id keeps pages stable across calls.
func (s *Store) ListArticlesPage(ctx context.Context, siteID, offset, pageSize int) ([]Article, error) {
	if pageSize <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: offset %d, page size %d", apperrors.ErrInvalidInput, offset, pageSize)
	}
	return s.articles.List(ctx, "WHERE site_id = ? ORDER BY id LIMIT ? OFFSET ?", siteID, pageSize, offset)
}

// GetArticleByID returns the article or an error wrapping
// apperrors.ErrArticleNotFound.
func (s *Store) GetArticleByID(ctx context.Context, id int) (Article, error) {
	a, err := s.articles.One(ctx, "WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Article{}, fmt.Errorf("%w: %d", apperrors.ErrArticleNotFound, id)
		}
		return Article{}, fmt.Errorf("fetching article %d: %w", id, err)
	}
	return a, nil
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.articles.Count(ctx)
}

// InsertSite validates and stores site and sets its ID.
func (s *Store) InsertSite(ctx context.Context, site *Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	id, err := s.sites.Insert(ctx, []string{"title", "url"}, site.Title, site.URL)
	if err != nil {
		return err
	}
	site.ID = id
	return nil
}

// InsertArticle validates and stores a and sets its ID.
func (s *Store) InsertArticle(ctx context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	id, err := s.articles.Insert(ctx,
		[]string{"site_id", "title", "content", "is_read"},
		a.SiteID, a.Title, a.Content, a.IsRead,
	)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// DeleteArticle removes an article. Deleting a missing id returns
// apperrors.ErrArticleNotFound.
func (s *Store) DeleteArticle(ctx context.Context, id int) error {
	ok, err := s.articles.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", apperrors.ErrArticleNotFound, id)
	}
	return nil
}
