package tiles

// Set is an insertion-ordered set of tile entity ids.
type Set struct {
	order []uint64
	index map[uint64]int
}

func NewSet() *Set {
	return &Set{index: map[uint64]int{}}
}

// Add returns false if id is already present.
func (s *Set) Add(id uint64) bool {
	if id == 0 {
		return false
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Remove returns false if id is absent.
func (s *Set) Remove(id uint64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	delete(s.index, id)
	s.order = append(s.order[:i], s.order[i+1:]...)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
	return true
}

func (s *Set) Has(id uint64) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int { return len(s.order) }

// IDs returns a copy so callers may mutate the set while iterating.
func (s *Set) IDs() []uint64 {
	out := make([]uint64, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Clear() {
	s.order = s.order[:0]
	s.index = map[uint64]int{}
}

// CanAdopt reports whether organism may take a tile whose back-reference is owner.
func CanAdopt(owner, organism uint64) bool {
	return owner == 0 || owner == organism
}
