package beta

import "github.com/coregx/rete/match"

// AddBlock records that right blocks left (spec I2: a negated or exists
// join's left-memory match has blockList != ∅ iff a conflicting
// right-memory match exists). left is threaded onto right's BlockList;
// left.Blocker names the anchor so RemoveBlock can unthread it without
// the caller re-supplying it.
func AddBlock(store *match.Store, left, right match.PMID) {
	l := store.Get(left)
	r := store.Get(right)

	l.Blocker = right
	l.PrevBlocked = match.InvalidPMID
	l.NextBlocked = r.BlockList
	if r.BlockList != match.InvalidPMID {
		store.Get(r.BlockList).PrevBlocked = left
	}
	r.BlockList = left
}

// RemoveBlock unthreads left from its blocker's BlockList, if it has one.
// A no-op if left is not currently blocked.
func RemoveBlock(store *match.Store, left match.PMID) {
	l := store.Get(left)
	blocker := l.Blocker
	if blocker == match.InvalidPMID {
		return
	}
	r := store.Get(blocker)

	if l.PrevBlocked != match.InvalidPMID {
		store.Get(l.PrevBlocked).NextBlocked = l.NextBlocked
	} else {
		r.BlockList = l.NextBlocked
	}
	if l.NextBlocked != match.InvalidPMID {
		store.Get(l.NextBlocked).PrevBlocked = l.PrevBlocked
	}

	l.Blocker = match.InvalidPMID
	l.NextBlocked = match.InvalidPMID
	l.PrevBlocked = match.InvalidPMID
}

// IsBlocked reports whether left currently has a blocker.
func IsBlocked(store *match.Store, left match.PMID) bool {
	return store.Get(left).Blocker != match.InvalidPMID
}
