package radix

// Posting records how often a term occurred in the title and body of one
// document.
type Posting struct {
	DocID     int `json:"doc_id"`
	TitleFreq int `json:"title_freq"`
	BodyFreq  int `json:"body_freq"`
}

// Score is the weighted term frequency used for ranking: title hits count
// double.
func (p Posting) Score() int {
	return 2*p.TitleFreq + p.BodyFreq
}

// postingSet holds at most one Posting per document. Order carries no
// meaning; removal swaps the last element into the freed slot.
type postingSet struct {
	items []Posting
	pos   map[int]int
}

func (s *postingSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *postingSet) add(docID int, isTitle bool) {
	if s.pos == nil {
		s.pos = make(map[int]int)
	}
	if i, ok := s.pos[docID]; ok {
		if isTitle {
			s.items[i].TitleFreq++
		} else {
			s.items[i].BodyFreq++
		}
		return
	}
	p := Posting{DocID: docID}
	if isTitle {
		p.TitleFreq = 1
	} else {
		p.BodyFreq = 1
	}
	s.pos[docID] = len(s.items)
	s.items = append(s.items, p)
}

func (s *postingSet) put(p Posting) {
	if s.pos == nil {
		s.pos = make(map[int]int)
	}
	if i, ok := s.pos[p.DocID]; ok {
		s.items[i] = p
		return
	}
	s.pos[p.DocID] = len(s.items)
	s.items = append(s.items, p)
}

func (s *postingSet) remove(docID int) bool {
	i, ok := s.pos[docID]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		s.items[i] = s.items[last]
		s.pos[s.items[i].DocID] = i
	}
	s.items = s.items[:last]
	delete(s.pos, docID)
	return true
}

func (s *postingSet) get(docID int) (Posting, bool) {
	if s == nil {
		return Posting{}, false
	}
	i, ok := s.pos[docID]
	if !ok {
		return Posting{}, false
	}
	return s.items[i], true
}
