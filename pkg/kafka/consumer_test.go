package kafka

import (
	"testing"
)

func TestDecode(t *testing.T) {
	type event struct {
		Type      string `json:"type"`
		ArticleID int    `json:"articleId"`
	}
	got, err := decode[event]([]byte(`{"type":"article.added","articleId":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "article.added" || got.ArticleID != 7 {
		t.Errorf("got %+v", got)
	}

	for _, bad := range []string{`{"type":`, `not json`, `{"articleId":"seven"}`} {
		if _, err := decode[event]([]byte(bad)); err == nil {
			t.Errorf("decode(%q): expected error", bad)
		}
	}
}

func TestPublishNothing(t *testing.T) {
	p := &Producer[int]{}
	if err := p.Publish(t.Context()); err != nil {
		t.Errorf("Publish with no events = %v", err)
	}
}
