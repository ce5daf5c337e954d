package radix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

// Slot is one entry of the flat postings or children arrays. An empty slot
// is encoded as the number 0, anything else as a JSON array of integers.
type Slot []int

// MarshalJSON implements json.Marshaler.
func (s Slot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("0"), nil
	}
	return json.Marshal([]int(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Slot) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("0")) || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	var values []int
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return fmt.Errorf("slot must be 0 or an array of integers: %w", err)
	}
	*s = values
	return nil
}

// Serialized is the flat form of a Tree. The three slices are indexed by a
// node id assigned in pre-order, the root being 0. Postings hold packed
// (docID, titleFreq, bodyFreq) triples.
type Serialized struct {
	Keys     []string `json:"keys"`
	Postings []Slot   `json:"postings"`
	Children []Slot   `json:"children"`
}

// Len returns the number of serialized nodes.
func (s Serialized) Len() int {
	return len(s.Keys)
}

// Serialize flattens the tree. Children are already sorted, so the output is
// deterministic for a given tree shape and posting order.
func (t *Tree) Serialize() Serialized {
	type frame struct {
		node   *Node
		parent int
		slot   int
	}
	var out Serialized
	stack := []frame{{node: t.root, parent: -1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := len(out.Keys)
		if f.parent >= 0 {
			out.Children[f.parent][f.slot] = id
		}
		out.Keys = append(out.Keys, f.node.key)
		out.Postings = append(out.Postings, packPostings(f.node))

		var kids Slot
		if n := len(f.node.children); n > 0 {
			kids = make(Slot, n)
		}
		out.Children = append(out.Children, kids)
		for i := len(f.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.children[i], parent: id, slot: i})
		}
	}
	return out
}

func packPostings(n *Node) Slot {
	if !n.hasPostings() {
		return nil
	}
	packed := make(Slot, 0, 3*len(n.postings.items))
	for _, p := range n.postings.items {
		packed = append(packed, p.DocID, p.TitleFreq, p.BodyFreq)
	}
	return packed
}

// Deserialize rebuilds a tree from its flat form. Structural damage is
// reported as an error wrapping apperrors.ErrCorruptSnapshot instead of
// yielding a partial tree.
func Deserialize(s Serialized) (*Tree, error) {
	n := len(s.Keys)
	if n == 0 {
		return nil, corrupt("no root node")
	}
	if len(s.Postings) != n || len(s.Children) != n {
		return nil, corrupt("array lengths differ: keys=%d postings=%d children=%d",
			n, len(s.Postings), len(s.Children))
	}

	nodes := make([]*Node, n)
	nodes[0] = &Node{}
	reached := 1
	stack := []int{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := nodes[id]

		if id != 0 {
			if s.Keys[id] == "" {
				return nil, corrupt("node %d has an empty key", id)
			}
			node.key = s.Keys[id]
		}

		packed := s.Postings[id]
		if len(packed)%3 != 0 {
			return nil, corrupt("node %d postings length %d is not a multiple of 3", id, len(packed))
		}
		if len(packed) > 0 {
			node.postings = &postingSet{}
			for j := 0; j < len(packed); j += 3 {
				p := Posting{DocID: packed[j], TitleFreq: packed[j+1], BodyFreq: packed[j+2]}
				if p.TitleFreq < 0 || p.BodyFreq < 0 {
					return nil, corrupt("node %d has a negative frequency for document %d", id, p.DocID)
				}
				node.postings.put(p)
			}
		}

		kids := s.Children[id]
		if len(kids) == 0 {
			continue
		}
		node.children = make([]*Node, 0, len(kids))
		for _, cid := range kids {
			if cid <= 0 || cid >= n {
				return nil, corrupt("node %d references child %d out of range", id, cid)
			}
			if nodes[cid] != nil {
				return nil, corrupt("node %d references child %d more than once", id, cid)
			}
			child := &Node{}
			nodes[cid] = child
			reached++
			node.children = append(node.children, child)
			stack = append(stack, cid)
		}
	}
	if reached != n {
		return nil, corrupt("%d of %d nodes are unreachable from the root", n-reached, n)
	}

	// Keys are only known once every node is hydrated, so ordering is checked last.
	for id, node := range nodes {
		if len(node.children) < 2 {
			continue
		}
		sort.SliceStable(node.children, func(a, b int) bool {
			return firstRune(node.children[a].key) < firstRune(node.children[b].key)
		})
		for j := 1; j < len(node.children); j++ {
			if firstRune(node.children[j-1].key) == firstRune(node.children[j].key) {
				return nil, corrupt("node %d has two children starting with %q",
					id, firstRune(node.children[j].key))
			}
		}
	}
	return &Tree{root: nodes[0]}, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}
