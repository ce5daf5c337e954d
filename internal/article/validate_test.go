package article

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

func TestArticleValidate(t *testing.T) {
	tests := []struct {
		name      string
		article   Article
		wantField string
	}{
		{"valid", Article{SiteID: 1, Title: "Go", Content: "<p>x</p>"}, ""},
		{"untitled feed item", Article{SiteID: 1}, ""},
		{"no site", Article{Title: "Go"}, "siteId"},
		{"long title", Article{SiteID: 1, Title: strings.Repeat("a", maxTitleLength+1)}, "title"},
		{"huge content", Article{SiteID: 1, Content: strings.Repeat("a", maxContentLength+1)}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.article.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if _, ok := ve.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, want %q", ve.Fields, tt.wantField)
			}
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Error("ValidationError does not match ErrInvalidInput")
			}
		})
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertArticle(context.Background(), &Article{Title: "orphan"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("InsertArticle = %v, want ErrInvalidInput", err)
	}
	if n, _ := s.CountArticles(context.Background()); n != 0 {
		t.Errorf("CountArticles = %d, want 0", n)
	}
}
