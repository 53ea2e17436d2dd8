package vcr

import (
	"sync"
)

// Store holds recorded interactions in insertion order and serves lookups
// with replay semantics.
//
// Interactions whose requests share a fingerprint form a group. Successive
// lookups for a group return its responses in order; once the last one is
// reached it keeps being returned.
//
// A Store is safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	interactions []Interaction
	cursors      map[Fingerprint]int

	// indexes are derived from interactions and rebuilt on demand.
	indexes map[AttributeSet]*index
}

// NewStore returns a store preloaded with interactions.
func NewStore(interactions ...Interaction) *Store {
	s := &Store{}
	s.Load(interactions...)
	return s
}

// Load appends copies of interactions in the given order.
func (s *Store) Load(interactions ...Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range interactions {
		s.interactions = append(s.interactions, in.Clone())
	}
}

// RecordNew appends a newly performed interaction. It is eligible for
// lookups immediately.
func (s *Store) RecordNew(i Interaction) {
	s.Load(i)
}

// FindAndConsume returns the next response recorded for req under set and
// advances the group's cursor. ok is false when nothing matches; that is not
// an error. An error is returned only for an invalid set.
func (s *Store) FindAndConsume(req *Request, set AttributeSet) (resp *Response, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.find(req, set)
	if err != nil || g == nil {
		return nil, false, err
	}

	if s.cursors == nil {
		s.cursors = make(map[Fingerprint]int)
	}
	cursor := s.cursors[g.fp]
	pos := cursor
	if pos >= len(g.members) {
		pos = len(g.members) - 1
	}
	if cursor < len(g.members) {
		s.cursors[g.fp] = cursor + 1
	}
	return s.interactions[g.members[pos]].Response.Clone(), true, nil
}

// RequestStubbed reports whether FindAndConsume would find a response for
// req, without advancing any cursor.
func (s *Store) RequestStubbed(req *Request, set AttributeSet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.find(req, set)
	return g != nil, err
}

// Interactions returns deep copies of all interactions in insertion order.
func (s *Store) Interactions() []Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Interaction, len(s.interactions))
	for i, in := range s.interactions {
		out[i] = in.Clone()
	}
	return out
}

// Len returns the number of interactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.interactions)
}

// Groups returns deep copies of the interactions grouped by request
// fingerprint under set, in the order the groups were first seen.
func (s *Store) Groups(set AttributeSet) ([][]Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index(set)
	if err != nil {
		return nil, err
	}
	out := make([][]Interaction, 0, len(idx.groups))
	for _, g := range idx.groups {
		members := make([]Interaction, len(g.members))
		for i, m := range g.members {
			members[i] = s.interactions[m].Clone()
		}
		out = append(out, members)
	}
	return out, nil
}

func (s *Store) find(req *Request, set AttributeSet) (*group, error) {
	idx, err := s.index(set)
	if err != nil {
		return nil, err
	}
	fp, err := FingerprintOf(req, set)
	if err != nil {
		return nil, err
	}
	if g, ok := idx.byFP[fp]; ok {
		return g, nil
	}
	for _, g := range idx.groups {
		if g.matcher.Matches(req) {
			return g, nil
		}
	}
	return nil, nil
}

// index returns the group index for set, extending it with interactions
// added since it was last used.
func (s *Store) index(set AttributeSet) (*index, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if s.indexes == nil {
		s.indexes = make(map[AttributeSet]*index)
	}
	idx, ok := s.indexes[set]
	if !ok {
		idx = &index{byFP: make(map[Fingerprint]*group)}
		s.indexes[set] = idx
	}
	for ; idx.size < len(s.interactions); idx.size++ {
		i := idx.size
		m, err := NewMatcher(s.interactions[i].Request, set)
		if err != nil {
			return nil, err
		}
		fp := m.Fingerprint()
		g, ok := idx.byFP[fp]
		if !ok {
			g = &group{fp: fp, matcher: m}
			idx.byFP[fp] = g
			idx.groups = append(idx.groups, g)
		}
		g.members = append(g.members, i)
	}
	return idx, nil
}

type index struct {
	groups []*group
	byFP   map[Fingerprint]*group
	// size is the number of interactions indexed so far.
	size int
}

type group struct {
	fp      Fingerprint
	matcher *Matcher
	members []int
}

// storeState is a deep copy of the mutable state of a Store.
type storeState struct {
	interactions []Interaction
	cursors      map[Fingerprint]int
}

func (s *Store) snapshot() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := storeState{
		interactions: make([]Interaction, len(s.interactions)),
		cursors:      make(map[Fingerprint]int, len(s.cursors)),
	}
	for i, in := range s.interactions {
		st.interactions[i] = in.Clone()
	}
	for k, v := range s.cursors {
		st.cursors[k] = v
	}
	return st
}

// restore replaces the store state with a copy of st, so st can be restored
// again later.
func (s *Store) restore(st storeState) {
	interactions := make([]Interaction, len(st.interactions))
	for i, in := range st.interactions {
		interactions[i] = in.Clone()
	}
	cursors := make(map[Fingerprint]int, len(st.cursors))
	for k, v := range st.cursors {
		cursors[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = interactions
	s.cursors = cursors
	s.indexes = nil
}
