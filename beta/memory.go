package beta

import "github.com/coregx/rete/match"

// initialBetaHashSize is spec §4.2's INITIAL_BETA_HASH_SIZE, the default
// used unless a Network is built with WithInitialHashSize.
const initialBetaHashSize = 17

// loadFactor is the default entries-per-bucket average that triggers a
// grow, used unless a Network is built with WithLoadFactor.
const loadFactor = 2

// BetaMemory is a hash table of partial-match buckets belonging to one
// side of a join node (spec §3 Beta Memory). Unlike alpha.AlphaMemory's
// Go map, a BetaMemory uses an explicit bucket-index slice: blocked-link
// and lineage pointers on a partial match require a stable identity and
// an ordered, re-scannable chain per bucket, which a map cannot give the
// retract pathway's FindNextConflictingMatch (spec §4.4.3).
//
// Growth and hit/miss accounting follow the teacher's dfa/lazy.Cache
// style (explicit growth points, an accessor for stats) adapted to
// bucket-array chaining instead of a Go map.
type BetaMemory struct {
	buckets []match.PMID
	count   int

	loadFactor int

	hits   uint64
	misses uint64
}

func newBetaMemory(initialSize, lf int) BetaMemory {
	if initialSize <= 0 {
		initialSize = initialBetaHashSize
	}
	if lf <= 0 {
		lf = loadFactor
	}
	m := BetaMemory{buckets: make([]match.PMID, initialSize), loadFactor: lf}
	for i := range m.buckets {
		m.buckets[i] = match.InvalidPMID
	}
	return m
}

// Size returns the number of partial matches currently in the memory.
func (m *BetaMemory) Size() int { return m.count }

// Stats returns bucket-scan hit/miss counters for tuning hash expressions.
func (m *BetaMemory) Stats() (hits, misses uint64) { return m.hits, m.misses }

func (m *BetaMemory) insert(store *match.Store, id match.PMID) {
	if m.count >= len(m.buckets)*m.loadFactor {
		m.grow(store)
	}
	pm := store.Get(id)
	idx := pm.HashValue % uint64(len(m.buckets))
	head := m.buckets[idx]
	pm.PrevInMemory = match.InvalidPMID
	if head != match.InvalidPMID {
		store.Get(head).PrevInMemory = id
	}
	pm.NextInMemory = head
	m.buckets[idx] = id
	m.count++
}

func (m *BetaMemory) remove(store *match.Store, id match.PMID) {
	pm := store.Get(id)
	idx := pm.HashValue % uint64(len(m.buckets))

	if pm.PrevInMemory != match.InvalidPMID {
		store.Get(pm.PrevInMemory).NextInMemory = pm.NextInMemory
	} else {
		m.buckets[idx] = pm.NextInMemory
	}
	if pm.NextInMemory != match.InvalidPMID {
		store.Get(pm.NextInMemory).PrevInMemory = pm.PrevInMemory
	}

	pm.NextInMemory = match.InvalidPMID
	pm.PrevInMemory = match.InvalidPMID
	m.count--
}

// grow rehashes every live entry into a larger bucket-index slice (the
// "growing to the next size needed" of spec §4.2). The new size is the
// next odd number above double the old one, matching 17's odd-sized
// starting point.
func (m *BetaMemory) grow(store *match.Store) {
	newSize := len(m.buckets)*2 + 1
	old := m.buckets
	m.buckets = make([]match.PMID, newSize)
	for i := range m.buckets {
		m.buckets[i] = match.InvalidPMID
	}

	for _, head := range old {
		cur := head
		for cur != match.InvalidPMID {
			pm := store.Get(cur)
			next := pm.NextInMemory

			idx := pm.HashValue % uint64(newSize)
			pm.PrevInMemory = match.InvalidPMID
			h := m.buckets[idx]
			if h != match.InvalidPMID {
				store.Get(h).PrevInMemory = cur
			}
			pm.NextInMemory = h
			m.buckets[idx] = cur

			cur = next
		}
	}
}

func (m *BetaMemory) bucket(store *match.Store, hash uint64, visit func(match.PMID) bool) {
	idx := hash % uint64(len(m.buckets))
	if m.buckets[idx] == match.InvalidPMID {
		m.misses++
		return
	}
	m.hits++
	for cur := m.buckets[idx]; cur != match.InvalidPMID; {
		next := store.Get(cur).NextInMemory
		if !visit(cur) {
			return
		}
		cur = next
	}
}

func (m *BetaMemory) bucketFrom(store *match.Store, start, skip match.PMID, visit func(match.PMID) bool) {
	for cur := start; cur != match.InvalidPMID; {
		next := store.Get(cur).NextInMemory
		if cur != skip && !visit(cur) {
			return
		}
		cur = next
	}
}

func (m *BetaMemory) scanAll(store *match.Store, visit func(match.PMID) bool) {
	for _, head := range m.buckets {
		for cur := head; cur != match.InvalidPMID; {
			next := store.Get(cur).NextInMemory
			if !visit(cur) {
				return
			}
			cur = next
		}
	}
}
