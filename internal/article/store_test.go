package article

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "WHERE a = ? AND b = ?", "WHERE a = ? AND b = ?"},
		{DialectPostgres, "WHERE a = ? AND b = ?", "WHERE a = $1 AND b = $2"},
		{DialectPostgres, "ORDER BY id", "ORDER BY id"},
		{DialectPostgres, "LIMIT ? OFFSET ?", "LIMIT $1 OFFSET $2"},
	}
	for _, tt := range tests {
		if got := tt.dialect.Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site := &Site{Title: "Blog", URL: "https://blog.example.com/feed"}
	if err := s.InsertSite(ctx, site); err != nil {
		t.Fatalf("InsertSite: %v", err)
	}
	if site.ID == 0 {
		t.Fatal("InsertSite did not set ID")
	}

	a := &Article{SiteID: site.ID, Title: "Go Routines", Content: "<p>goroutines are fun</p>", IsRead: true}
	if err := s.InsertArticle(ctx, a); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	got, err := s.GetArticleByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got != *a {
		t.Errorf("GetArticleByID = %+v, want %+v", got, *a)
	}

	if _, err := s.GetArticleByID(ctx, 999); !errors.Is(err, apperrors.ErrArticleNotFound) {
		t.Errorf("missing article: err = %v, want ErrArticleNotFound", err)
	}
}

func TestListArticlesPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var sites []*Site
	for _, url := range []string{"https://a.example.com", "https://b.example.com"} {
		site := &Site{Title: url, URL: url}
		if err := s.InsertSite(ctx, site); err != nil {
			t.Fatalf("InsertSite: %v", err)
		}
		sites = append(sites, site)
	}
	for i := 0; i < 7; i++ {
		a := &Article{SiteID: sites[0].ID, Title: "a"}
		if err := s.InsertArticle(ctx, a); err != nil {
			t.Fatalf("InsertArticle: %v", err)
		}
	}
	if err := s.InsertArticle(ctx, &Article{SiteID: sites[1].ID, Title: "b"}); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}

	listed, err := s.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != sites[0].ID {
		t.Fatalf("ListSites = %+v", listed)
	}

	var seen []int
	for offset := 0; ; offset += 3 {
		page, err := s.ListArticlesPage(ctx, sites[0].ID, offset, 3)
		if err != nil {
			t.Fatalf("ListArticlesPage(offset=%d): %v", offset, err)
		}
		for _, a := range page {
			if a.SiteID != sites[0].ID {
				t.Errorf("article %d belongs to site %d", a.ID, a.SiteID)
			}
			seen = append(seen, a.ID)
		}
		if len(page) < 3 {
			break
		}
	}
	if len(seen) != 7 {
		t.Fatalf("paged through %d articles, want 7", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("pages not in id order: %v", seen)
			break
		}
	}

	if _, err := s.ListArticlesPage(ctx, sites[0].ID, 0, 0); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("zero page size: err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteArticle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site := &Site{Title: "s", URL: "u"}
	if err := s.InsertSite(ctx, site); err != nil {
		t.Fatalf("InsertSite: %v", err)
	}
	a := &Article{SiteID: site.ID, Title: "t"}
	if err := s.InsertArticle(ctx, a); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}

	if err := s.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	if err := s.DeleteArticle(ctx, a.ID); !errors.Is(err, apperrors.ErrArticleNotFound) {
		t.Errorf("second delete: err = %v, want ErrArticleNotFound", err)
	}
	n, err := s.CountArticles(ctx)
	if err != nil {
		t.Fatalf("CountArticles: %v", err)
	}
	if n != 0 {
		t.Errorf("CountArticles = %d, want 0", n)
	}
}
