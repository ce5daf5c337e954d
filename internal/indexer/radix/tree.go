// Package radix implements a compressed trie mapping terms to per-document
// postings. Children of every node are kept sorted by the first rune of
// their key fragment so lookups can binary search them.
//
// A Tree is not safe for concurrent use; callers serialise access.
package radix

import (
	"strings"
	"unicode/utf8"
)

// Node is one edge of the trie. key holds the node's fragment of every term
// routed through it; postings is nil unless the path ending here is itself an
// indexed term.
type Node struct {
	key      string
	children []*Node
	postings *postingSet
}

// Key returns the node's key fragment.
func (n *Node) Key() string {
	return n.key
}

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// Postings returns a copy of the node's postings, or nil when it has none.
func (n *Node) Postings() []Posting {
	if n.postings.len() == 0 {
		return nil
	}
	out := make([]Posting, len(n.postings.items))
	copy(out, n.postings.items)
	return out
}

func (n *Node) hasPostings() bool {
	return n.postings.len() > 0
}

// addChild appends child and moves it left until the children are sorted by
// first rune again.
func (n *Node) addChild(child *Node) {
	n.children = append(n.children, child)
	r := firstRune(child.key)
	for i := len(n.children) - 1; i > 0 && firstRune(n.children[i-1].key) > r; i-- {
		n.children[i], n.children[i-1] = n.children[i-1], n.children[i]
	}
}

// split cuts the fragment at byte offset at. The leftover tail becomes the
// single child of n and takes over n's postings and children.
func (n *Node) split(at int) {
	tail := &Node{
		key:      n.key[at:],
		children: n.children,
		postings: n.postings,
	}
	n.key = n.key[:at]
	n.children = []*Node{tail}
	n.postings = nil
}

// Tree is a radix tree over terms. The root's fragment is always empty and
// never matched.
type Tree struct {
	root *Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: &Node{}}
}

// Root exposes the root node for read-only inspection.
func (t *Tree) Root() *Node {
	return t.root
}

// Insert records one occurrence of term in document docID. isTitle selects
// which frequency counter is incremented. Empty terms are ignored.
func (t *Tree) Insert(term string, docID int, isTitle bool) {
	if term == "" {
		return
	}
	if !utf8.ValidString(term) {
		term = strings.ToValidUTF8(term, string(utf8.RuneError))
	}
	node := t.root
	i := 0
	for i < len(term) {
		rest := term[i:]
		if len(node.children) == 0 {
			child := &Node{key: rest}
			node.children = []*Node{child}
			node = child
			break
		}
		idx := searchChildren(rest, node.children)
		if idx < 0 {
			child := &Node{key: rest}
			node.addChild(child)
			node = child
			break
		}
		child := node.children[idx]
		common := commonPrefixLen(rest, child.key)
		switch {
		case common == len(rest) && common == len(child.key):
			node = child
			i = len(term)
		case common == len(child.key):
			// child's fragment is a strict prefix of what is left
			i += common
			node = child
		case common == len(rest):
			// what is left is a strict prefix of child's fragment
			child.split(common)
			node = child
			i = len(term)
		default:
			// diverging fragments: the next iteration attaches the new branch
			child.split(common)
			i += common
			node = child
		}
	}
	if node.postings == nil {
		node.postings = &postingSet{}
	}
	node.postings.add(docID, isTitle)
}

// Delete removes every posting of docID, prunes branches left empty and
// merges single-child chains back into one node.
func (t *Tree) Delete(docID int) {
	deleteFrom(t.root, docID, true)
}

func deleteFrom(n *Node, docID int, isRoot bool) {
	for _, c := range n.children {
		deleteFrom(c, docID, false)
	}

	kept := n.children[:0]
	for _, c := range n.children {
		if len(c.children) == 0 && !c.hasPostings() {
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.children); i++ {
		n.children[i] = nil
	}
	n.children = kept
	if len(n.children) == 0 {
		n.children = nil
	}

	if n.postings != nil {
		n.postings.remove(docID)
		if n.postings.len() == 0 {
			n.postings = nil
		}
	}

	if !isRoot && n.postings == nil && len(n.children) == 1 {
		child := n.children[0]
		n.key += child.key
		n.postings = child.postings
		n.children = child.children
	}
}

// PrefixSearch returns the postings of every term starting with prefix. ok
// is false when no indexed term has that prefix. With exactOnly set, only the
// postings of the term equal to prefix are returned; the result may then be
// nil with ok true when prefix lies on an inner node.
//
// The order of the returned postings is unspecified.
func (t *Tree) PrefixSearch(prefix string, exactOnly bool) (postings []Posting, ok bool) {
	node := t.find(prefix, exactOnly)
	if node == nil {
		return nil, false
	}
	if exactOnly {
		return node.Postings(), true
	}
	stack := []*Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.hasPostings() {
			postings = append(postings, n.postings.items...)
		}
		stack = append(stack, n.children...)
	}
	return postings, true
}

// Lookup returns the postings of exactly term.
func (t *Tree) Lookup(term string) []Posting {
	postings, _ := t.PrefixSearch(term, true)
	return postings
}

func (t *Tree) find(prefix string, exactOnly bool) *Node {
	node := t.root
	i := 0
	for i < len(prefix) {
		rest := prefix[i:]
		idx := searchChildren(rest, node.children)
		if idx < 0 {
			return nil
		}
		child := node.children[idx]
		common := commonPrefixLen(rest, child.key)
		switch {
		case common == len(rest):
			if exactOnly && common < len(child.key) {
				return nil
			}
			return child
		case common == len(child.key):
			i += common
			node = child
		default:
			return nil
		}
	}
	return node
}

// Walk visits every node in pre-order, passing the full term spelled by the
// path from the root. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(term string, n *Node) bool) {
	type frame struct {
		node   *Node
		prefix string
	}
	stack := []frame{{node: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		term := f.prefix + f.node.key
		if !fn(term, f.node) {
			return
		}
		for i := len(f.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.children[i], prefix: term})
		}
	}
}

// NodeCount returns the number of nodes including the root.
func (t *Tree) NodeCount() int {
	count := 0
	t.Walk(func(string, *Node) bool {
		count++
		return true
	})
	return count
}

// searchChildren binary searches children for the one whose fragment starts
// with the same rune as fragment. It returns -1 when there is none.
func searchChildren(fragment string, children []*Node) int {
	target := firstRune(fragment)
	lo, hi := 0, len(children)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		r := firstRune(children[mid].key)
		switch {
		case r == target:
			return mid
		case r < target:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// commonPrefixLen returns the length in bytes of the longest common prefix of
// a and b, cut back to a rune boundary so fragments stay valid UTF-8.
func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}
	return i
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
