package htmltext_test

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/htmltext"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "rust is great", "rust is great"},
		{"paragraphs", "<p>Hello</p><p>world</p>", "Hello world"},
		{"inline markup", "<p>go <b>routines</b> are <a href=\"/x\">fun</a></p>", "go routines are fun"},
		{"script and style skipped", "<style>p{}</style><p>kept</p><script>var x = 1;</script>", "kept"},
		{"entities decoded", "<p>fish &amp; chips</p>", "fish & chips"},
		{"empty", "", ""},
		{"emphasis inside a word", "un<em>believ</em>able", "unbelievable"},
		{"link before apostrophe", "<a href=\"/x\">Go</a>'s runtime", "Go's runtime"},
		{"subscript", "H<sub>2</sub>O", "H2O"},
		{"space kept around inline tags", "<p>a <b>bold</b> move</p>", "a bold move"},
		{"line break separates", "first<br>second", "first second"},
		{"list items separate", "<ul><li>one</li><li>two</li></ul>", "one two"},
		{"table cells separate", "<table><tr><td>a</td><td>b</td></tr></table>", "a b"},
		{"headings separate", "<h2>Title</h2>body", "Title body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmltext.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
