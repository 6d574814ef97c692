// Package gc implements the deferred-free discipline for partial matches
// (spec §4.5 component C7, invariant I4): a match still referenced by a
// running RHS action is parked on a garbage list instead of freed
// immediately, and reclaimed at the next safe point.
//
// Every alpha match in this port is always wrapped in a bcount=1 partial
// match (see package alpha), so there is no separate garbage-alpha-match
// list as in the original source's GarbageAlphaMatches: freeing the
// wrapping partial match frees its alpha match too (see DESIGN.md).
package gc

import "github.com/coregx/rete/match"

// List is the process-wide queue of partial matches awaiting reclamation,
// threaded through NextInMemory the way the original source repurposes
// that field for its GarbagePartialMatches list head.
type List struct {
	store *match.Store
	head  match.PMID
}

// New creates an empty garbage list backed by store.
func New(store *match.Store) *List {
	return &List{store: store, head: match.InvalidPMID}
}

// ReturnPartialMatch returns id's storage to the pool, or defers that
// return if id is busy (spec I4). Call this instead of
// Store.FreePartialMatch directly everywhere the retract pathway detaches
// a match from its lineage.
func (l *List) ReturnPartialMatch(id match.PMID) {
	pm := l.store.Get(id)

	if pm.Busy {
		pm.NextInMemory = l.head
		l.head = id
		return
	}

	l.free(id)
}

// DestroyPartialMatch is the forcible teardown variant: it frees id
// without checking Busy. Used only when tearing down an entire
// environment, where no RHS action can still be holding a reference.
func (l *List) DestroyPartialMatch(id match.PMID) {
	l.free(id)
}

func (l *List) free(id match.PMID) {
	pm := l.store.Get(id)
	if !pm.BetaMemory {
		l.store.FreeAlphaMatch(pm.Binds[0].Alpha)
	}
	l.store.FreePartialMatch(id)
}

// Flush reclaims every partial match queued since the last Flush (spec
// §4.5 "called at a safe point... to reclaim everything queued"). It must
// run after the outer assert/retract call returns and before control
// returns to the caller, per spec §5's ordering guarantee.
func (l *List) Flush() {
	for l.head != match.InvalidPMID {
		id := l.head
		pm := l.store.Get(id)
		l.head = pm.NextInMemory
		pm.Busy = false
		l.free(id)
	}
}

// Pending reports how many matches are currently queued, for tests.
func (l *List) Pending() int {
	n := 0
	for cur := l.head; cur != match.InvalidPMID; cur = l.store.Get(cur).NextInMemory {
		n++
	}
	return n
}
