package radix

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

func sampleTree() *Tree {
	tree := New()
	tree.Insert("java", 1, true)
	tree.Insert("javascript", 2, false)
	tree.Insert("javascript", 2, false)
	tree.Insert("jug", 3, true)
	tree.Insert("go", 1, false)
	return tree
}

func TestSerializeLayout(t *testing.T) {
	s := sampleTree().Serialize()

	wantKeys := []string{"", "go", "j", "ava", "script", "ug"}
	if fmt.Sprint(s.Keys) != fmt.Sprint(wantKeys) {
		t.Fatalf("keys = %q, want %q", s.Keys, wantKeys)
	}
	wantChildren := []Slot{{1, 2}, nil, {3, 5}, {4}, nil, nil}
	if fmt.Sprint(s.Children) != fmt.Sprint(wantChildren) {
		t.Errorf("children = %v, want %v", s.Children, wantChildren)
	}
	wantPostings := []Slot{nil, {1, 0, 1}, nil, {1, 1, 0}, {2, 0, 2}, {3, 1, 0}}
	if fmt.Sprint(s.Postings) != fmt.Sprint(wantPostings) {
		t.Errorf("postings = %v, want %v", s.Postings, wantPostings)
	}
}

func TestSerializeJSONShape(t *testing.T) {
	data, err := json.Marshal(sampleTree().Serialize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"keys":["","go","j","ava","script","ug"],` +
		`"postings":[0,[1,0,1],0,[1,1,0],[2,0,2],[3,1,0]],` +
		`"children":[[1,2],0,[3,5],[4],0,0]}`
	if string(data) != want {
		t.Errorf("json =\n%s\nwant\n%s", data, want)
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleTree()
	data, err := json.Marshal(original.Serialize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Serialized
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := Deserialize(decoded)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	for _, term := range []string{"java", "javascript", "jug", "go", "j", "ja", "g"} {
		want, wantOK := original.PrefixSearch(term, false)
		got, gotOK := restored.PrefixSearch(term, false)
		if wantOK != gotOK {
			t.Errorf("%q: ok = %v, want %v", term, gotOK, wantOK)
			continue
		}
		if fmt.Sprint(postingsByDoc(got)) != fmt.Sprint(postingsByDoc(want)) {
			t.Errorf("%q: postings = %v, want %v", term, got, want)
		}
	}
	checkStructure(t, restored)

	if fmt.Sprint(restored.Serialize()) != fmt.Sprint(original.Serialize()) {
		t.Error("re-serialized tree differs from original")
	}
}

func TestRoundTripThenMutate(t *testing.T) {
	restored, err := Deserialize(sampleTree().Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	restored.Insert("java", 1, true)
	restored.Insert("jazz", 4, false)
	restored.Delete(2)

	got := restored.Lookup("java")
	if len(got) != 1 || got[0].TitleFreq != 2 {
		t.Errorf("java = %+v, want title=2", got)
	}
	if got := restored.Lookup("javascript"); got != nil {
		t.Errorf("javascript = %+v, want nil", got)
	}
	if got := restored.Lookup("jazz"); len(got) != 1 || got[0].DocID != 4 {
		t.Errorf("jazz = %+v, want doc 4", got)
	}
	checkStructure(t, restored)
}

func TestDeserializeEmptyTree(t *testing.T) {
	tree, err := Deserialize(New().Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if n := tree.NodeCount(); n != 1 {
		t.Errorf("node count = %d, want 1", n)
	}
}

func TestDeserializeSortsChildren(t *testing.T) {
	s := Serialized{
		Keys:     []string{"", "zeta", "alpha"},
		Postings: []Slot{nil, {1, 1, 0}, {2, 0, 1}},
		Children: []Slot{{1, 2}, nil, nil},
	}
	tree, err := Deserialize(s)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := tree.Lookup("alpha"); len(got) != 1 || got[0].DocID != 2 {
		t.Errorf("alpha = %+v, want doc 2", got)
	}
	if got := tree.Lookup("zeta"); len(got) != 1 || got[0].DocID != 1 {
		t.Errorf("zeta = %+v, want doc 1", got)
	}
}

func TestDeserializeRejectsCorruptInput(t *testing.T) {
	tests := []struct {
		name string
		in   Serialized
	}{
		{"no nodes", Serialized{}},
		{"length mismatch", Serialized{
			Keys:     []string{"", "a"},
			Postings: []Slot{nil},
			Children: []Slot{{1}, nil},
		}},
		{"dangling child", Serialized{
			Keys:     []string{"", "a"},
			Postings: []Slot{nil, {1, 1, 0}},
			Children: []Slot{{1, 5}, nil},
		}},
		{"child points at root", Serialized{
			Keys:     []string{"", "a"},
			Postings: []Slot{nil, {1, 1, 0}},
			Children: []Slot{{1}, {0}},
		}},
		{"shared child", Serialized{
			Keys:     []string{"", "a", "b"},
			Postings: []Slot{nil, {1, 1, 0}, {1, 1, 0}},
			Children: []Slot{{1, 2}, {2}, nil},
		}},
		{"bad triple", Serialized{
			Keys:     []string{"", "a"},
			Postings: []Slot{nil, {1, 1}},
			Children: []Slot{{1}, nil},
		}},
		{"unreachable node", Serialized{
			Keys:     []string{"", "a", "b"},
			Postings: []Slot{nil, {1, 1, 0}, {1, 1, 0}},
			Children: []Slot{{1}, nil, nil},
		}},
		{"duplicate first rune", Serialized{
			Keys:     []string{"", "ab", "ac"},
			Postings: []Slot{nil, {1, 1, 0}, {1, 1, 0}},
			Children: []Slot{{1, 2}, nil, nil},
		}},
		{"empty key", Serialized{
			Keys:     []string{"", ""},
			Postings: []Slot{nil, {1, 1, 0}},
			Children: []Slot{{1}, nil},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, apperrors.ErrCorruptSnapshot) {
				t.Errorf("error %v does not wrap ErrCorruptSnapshot", err)
			}
		})
	}
}

func TestSlotUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Slot
		wantErr bool
	}{
		{"0", nil, false},
		{"null", nil, false},
		{"[1,2,3]", Slot{1, 2, 3}, false},
		{`"x"`, nil, true},
		{"1", nil, true},
	}
	for _, tt := range tests {
		var s Slot
		err := json.Unmarshal([]byte(tt.in), &s)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if fmt.Sprint(s) != fmt.Sprint(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.in, s, tt.want)
		}
	}
}
