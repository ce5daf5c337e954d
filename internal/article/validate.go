package article

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

const (
	maxTitleLength   = 1024
	maxURLLength     = 2048
	maxContentLength = 8 << 20
)

// ValidationError holds per-field failure messages. It matches
// apperrors.ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks an article before it is stored. Feed items without a
// title or body are allowed.
func (a *Article) Validate() error {
	errs := make(map[string]string)
	if a.SiteID <= 0 {
		errs["siteId"] = "site id is required"
	}
	if len(strings.TrimSpace(a.Title)) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	if len(a.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Validate checks a site before it is stored.
func (s *Site) Validate() error {
	errs := make(map[string]string)
	if len(strings.TrimSpace(s.Title)) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	if len(s.URL) > maxURLLength {
		errs["url"] = fmt.Sprintf("url must be at most %d bytes", maxURLLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
