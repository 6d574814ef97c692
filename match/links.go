package match

// LinkRightChild threads child onto parent's right-children list: the
// matches that used parent as their rightmost (or only) entry (spec §3
// Partial Match "children... right-child list under rightParent"). Most
// often parent is an alpha-memory match, but a from-the-right join's
// right input may itself be a beta match.
func LinkRightChild(store *Store, parent, child PMID) {
	p := store.Get(parent)
	c := store.Get(child)

	c.RightParent = parent
	c.PrevRightChild = InvalidPMID
	c.NextRightChild = p.Children
	if p.Children != InvalidPMID {
		store.Get(p.Children).PrevRightChild = child
	}
	p.Children = child
}

// UnlinkRightChild removes child from its right parent's right-children
// list.
func UnlinkRightChild(store *Store, child PMID) {
	c := store.Get(child)
	if c.RightParent == InvalidPMID {
		return
	}
	p := store.Get(c.RightParent)

	if c.PrevRightChild != InvalidPMID {
		store.Get(c.PrevRightChild).NextRightChild = c.NextRightChild
	} else {
		p.Children = c.NextRightChild
	}
	if c.NextRightChild != InvalidPMID {
		store.Get(c.NextRightChild).PrevRightChild = c.PrevRightChild
	}

	c.RightParent = InvalidPMID
	c.NextRightChild = InvalidPMID
	c.PrevRightChild = InvalidPMID
}

// LinkLeftChild threads child onto parent's left-children list: the
// matches produced with parent as their left input (spec §3 "left-child
// list under leftParent"). parent is always a beta match.
func LinkLeftChild(store *Store, parent, child PMID) {
	p := store.Get(parent)
	c := store.Get(child)

	c.LeftParent = parent
	c.PrevLeftChild = InvalidPMID
	c.NextLeftChild = p.Children
	if p.Children != InvalidPMID {
		store.Get(p.Children).PrevLeftChild = child
	}
	p.Children = child
}

// UnlinkLeftChild removes child from its left parent's left-children
// list.
func UnlinkLeftChild(store *Store, child PMID) {
	c := store.Get(child)
	if c.LeftParent == InvalidPMID {
		return
	}
	p := store.Get(c.LeftParent)

	if c.PrevLeftChild != InvalidPMID {
		store.Get(c.PrevLeftChild).NextLeftChild = c.NextLeftChild
	} else {
		p.Children = c.NextLeftChild
	}
	if c.NextLeftChild != InvalidPMID {
		store.Get(c.NextLeftChild).PrevLeftChild = c.PrevLeftChild
	}

	c.LeftParent = InvalidPMID
	c.NextLeftChild = InvalidPMID
	c.PrevLeftChild = InvalidPMID
}

// Clone duplicates src's Binds into a new partial match for fan-out: the
// same alpha match wired to more than one join, or the same beta match
// with more than one NextLink, needs its own PartialMatch per destination
// beyond the first, since a PartialMatch can only record membership in
// one join's memory at a time (OwnerKind/OwnerID/HashValue/NextInMemory/
// PrevInMemory). The clone is threaded onto src's AliasHead list so
// retract can find and tear it down alongside src.
//
// BetaMemory is forced true regardless of src's own kind: a clone never
// owns the AlphaMatch a Binds[0].Alpha cell may reference (src does, or
// whichever original alpha-memory match the bind positionally traces
// back to); gc.List.free only frees that AlphaMatch when BetaMemory is
// false, so leaving a clone's BetaMemory false would free it twice.
func Clone(store *Store, src PMID) PMID {
	s := store.Get(src)
	binds := s.Binds
	producedBy := s.ProducedBy

	id := store.NewPartialMatch(len(binds))
	c := store.Get(id)
	copy(c.Binds, binds)
	c.ProducedBy = producedBy
	c.BetaMemory = true

	s = store.Get(src)
	c.AliasNext = s.AliasHead
	s.AliasHead = id
	return id
}
