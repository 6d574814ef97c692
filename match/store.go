package match

import (
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/internal/conv"
)

// Store is the arena + pooled allocator for partial matches and alpha
// matches. It plays the role the teacher's nfa.Builder plays for NFA
// states: a single growable slice indexed by a stable id, plus — for
// partial matches specifically — free lists bucketed by bcount, since the
// spec's pool allocator must "honor these exact sizes for free-list
// matching" (spec §5) to let a freed match's backing Binds array be
// reused without reallocation.
//
// A Store is owned by exactly one engine.Environment and is never
// accessed concurrently (spec §5: single-threaded cooperative).
type Store struct {
	partials      []PartialMatch
	freeBySize    map[int][]PMID
	partialsAlive int

	alphas      []AlphaMatch
	freeAlphas  []AMID
	alphasAlive int
}

// NewStore creates an empty match arena.
func NewStore() *Store {
	return &Store{
		freeBySize: make(map[int][]PMID),
	}
}

// NewPartialMatch allocates a partial match with bcount bind cells,
// reusing a freed match of the same bcount when one is available.
func (s *Store) NewPartialMatch(bcount int) PMID {
	s.partialsAlive++
	if free := s.freeBySize[bcount]; len(free) > 0 {
		id := free[len(free)-1]
		s.freeBySize[bcount] = free[:len(free)-1]
		pm := &s.partials[id]
		binds := pm.Binds[:bcount]
		for i := range binds {
			binds[i] = GenericMatch{Alpha: InvalidAMID}
		}
		*pm = PartialMatch{ID: id, Binds: binds}
		resetLinks(pm)
		return id
	}

	id := PMID(conv.IntToUint32(len(s.partials)))
	binds := make([]GenericMatch, bcount)
	for i := range binds {
		binds[i] = GenericMatch{Alpha: InvalidAMID}
	}
	s.partials = append(s.partials, PartialMatch{ID: id, Binds: binds})
	resetLinks(&s.partials[len(s.partials)-1])
	return id
}

// Get returns the partial match for id. The pointer is valid until the
// next call to NewPartialMatch grows the underlying arena slice.
func (s *Store) Get(id PMID) *PartialMatch {
	return &s.partials[id]
}

// FreePartialMatch returns id's storage to the pool, bucketed by its
// bcount, for future reuse by NewPartialMatch.
func (s *Store) FreePartialMatch(id PMID) {
	bcount := len(s.partials[id].Binds)
	s.freeBySize[bcount] = append(s.freeBySize[bcount], id)
	s.partialsAlive--
}

// AlivePartialMatches reports how many partial matches are currently
// allocated and not on a free list. Used by tests asserting P1 (round
// trip) and P7 (garbage safety).
func (s *Store) AlivePartialMatches() int { return s.partialsAlive }

// NewAlphaMatch allocates an alpha match for e, with the given multifield
// markers and hash bucket.
func (s *Store) NewAlphaMatch(e entity.Entity, markers []MultifieldMarker, bucket uint64) AMID {
	s.alphasAlive++
	if free := s.freeAlphas; len(free) > 0 {
		id := free[len(free)-1]
		s.freeAlphas = free[:len(free)-1]
		s.alphas[id] = AlphaMatch{ID: id, Entity: e, Markers: markers, Bucket: bucket, Next: InvalidAMID}
		return id
	}
	id := AMID(conv.IntToUint32(len(s.alphas)))
	s.alphas = append(s.alphas, AlphaMatch{ID: id, Entity: e, Markers: markers, Bucket: bucket, Next: InvalidAMID})
	return id
}

// GetAlpha returns the alpha match for id.
func (s *Store) GetAlpha(id AMID) *AlphaMatch {
	return &s.alphas[id]
}

// FreeAlphaMatch returns an alpha match's storage to the pool.
func (s *Store) FreeAlphaMatch(id AMID) {
	s.alphas[id] = AlphaMatch{}
	s.freeAlphas = append(s.freeAlphas, id)
	s.alphasAlive--
}

// AliveAlphaMatches reports how many alpha matches are currently live.
func (s *Store) AliveAlphaMatches() int { return s.alphasAlive }
