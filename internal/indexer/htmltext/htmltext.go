// Package htmltext extracts the readable text of an HTML fragment so article
// bodies can be tokenised.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Text returns the text of content with tags removed. Text nodes are joined
// as written, so inline markup never splits a word; block elements and <br>
// separate their text from the surroundings. Runs of whitespace collapse to
// one space. Text under <script>, <style> and <noscript> is skipped. Content
// without markup is returned unchanged.
func Text(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var sb strings.Builder
	var skipDepth int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		skipped := n.Type == html.ElementNode && isSkipped(n.Data)
		if skipped {
			skipDepth++
		}
		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			sb.WriteByte(' ')
		}
		if skipDepth == 0 && n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
		if skipped {
			skipDepth--
		}
	}
	walk(root)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func isBlock(tag string) bool {
	switch strings.ToLower(tag) {
	case "p", "div", "li", "br", "tr", "td", "th", "blockquote", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "table", "article", "section", "hr":
		return true
	}
	return false
}

func isSkipped(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript":
		return true
	}
	return false
}
