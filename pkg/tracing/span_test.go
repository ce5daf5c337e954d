package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/logger"
)

func TestStartSpanUsesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-42")
	_, span := StartSpan(ctx, "index.rebuild")
	if span.TraceID != "req-42" {
		t.Errorf("TraceID = %q, want req-42", span.TraceID)
	}

	_, span = StartSpan(context.Background(), "index.rebuild")
	if len(span.TraceID) != 16 {
		t.Errorf("generated TraceID = %q, want 16 hex chars", span.TraceID)
	}
}

func TestChildSpans(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "root")
	childCtx, child := StartChildSpan(ctx, "child")
	_, grandchild := StartChildSpan(childCtx, "grandchild")

	if child.TraceID != root.TraceID || grandchild.TraceID != root.TraceID {
		t.Errorf("trace ids differ: %s %s %s", root.TraceID, child.TraceID, grandchild.TraceID)
	}
	if got := root.Children(); len(got) != 1 || got[0] != child {
		t.Errorf("root children = %v", got)
	}
	if got := child.Children(); len(got) != 1 || got[0] != grandchild {
		t.Errorf("child children = %v", got)
	}
	if SpanFromContext(childCtx) != child {
		t.Error("SpanFromContext did not return the child")
	}
}

func TestChildWithoutParentIsRoot(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID == "" {
		t.Error("orphan span has no trace id")
	}
}

func TestLogWritesTree(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "debug", "text")

	ctx, root := StartSpan(context.Background(), "index.rebuild")
	_, child := StartChildSpan(ctx, "corpus.site")
	child.SetAttr("site_id", 3)
	child.End()
	root.End()
	root.Log(l)

	out := buf.String()
	for _, want := range []string{"span=index.rebuild", "span=corpus.site", "site_id=3", "depth=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
