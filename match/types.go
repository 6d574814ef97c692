// Package match implements the core's match primitives (spec §3, §4
// component C1): alpha matches, multifield markers, the generic bind cell,
// and the partial match itself.
//
// All node identity in the network is a stable arena index rather than a
// pointer — PMID for partial matches, AMID for alpha matches — mirroring
// the teacher's nfa.StateID convention. Every mutation is reached through
// a *Store, so there are no package-level statics; a Store is owned by
// exactly one engine.Environment.
package match

import "github.com/coregx/rete/entity"

// PMID identifies a partial match within a Store's arena.
type PMID uint32

// AMID identifies an alpha match within a Store's arena.
type AMID uint32

// InvalidPMID marks the absence of a partial match reference.
const InvalidPMID PMID = 0xFFFFFFFF

// InvalidAMID marks the absence of an alpha match reference.
const InvalidAMID AMID = 0xFFFFFFFF

// OwnerKind distinguishes what a partial match's OwnerID refers to: an
// alpha memory bucket (for bcount==1 matches produced directly by the
// pattern network) or a join node (for everything produced by the beta
// network).
type OwnerKind uint8

const (
	OwnerNone OwnerKind = iota
	OwnerAlphaMemory
	OwnerJoin
)

// MultifieldMarker records the range of fields a $? / $?var restriction
// matched, since a single pattern restriction may span zero or more
// fields (spec §3 Multifield Marker).
type MultifieldMarker struct {
	WhichField    int
	SlotName      string // symbolic slot handle; empty if identified by ordinal
	SlotOrdinal   int    // used when SlotName == ""
	StartPosition int
	Range         int
}

// AlphaMatch is one successful match of a single pattern by a single
// entity (spec §3 Alpha Match).
type AlphaMatch struct {
	ID       AMID
	Entity   entity.Entity
	Markers  []MultifieldMarker
	Bucket   uint64
	Next     AMID // always InvalidAMID; alpha-memory buckets chain through PartialMatch.AlphaNext
	Deleting bool
}

// GenericMatch is the tagged-union cell a partial match's Binds are made
// of: a cell traced back to an alpha-memory match (index 0 of that match,
// and every cell a join copies from it into a combined match) carries an
// alpha match id; any other cell carries an arbitrary bound value (spec
// §3 Generic Match).
type GenericMatch struct {
	Alpha AMID // InvalidAMID when this cell holds Value instead
	Value any
}

// PartialMatch is the central entity of the network (spec §3 Partial
// Match / Invariants I1-I5).
type PartialMatch struct {
	ID    PMID
	Binds []GenericMatch // len(Binds) == bcount

	BetaMemory bool // lives in a beta memory rather than an alpha memory
	Busy       bool // referenced by a running RHS; deferred free (I4)
	RHSMemory  bool // lives in the right memory of its owning join
	Deleting   bool // marked for retraction; skip in concurrent traversal
	GoalMarker bool // carries a goal attachment

	HashValue uint64

	// AlphaHashValue is the bucket an alpha-memory match was inserted
	// under in its own alpha.AlphaMemory, kept separate from HashValue:
	// once the same match also enters a join's beta memory (the normal
	// case for a first join's right input), HashValue is overwritten with
	// that join's bucket, and alpha.AlphaMemory.remove still needs its
	// original bucket to find it.
	AlphaHashValue uint64

	OwnerKind OwnerKind
	OwnerID   uint32 // alpha-memory index or join index, per OwnerKind
	Marker    any    // non-nil iff this match has a live activation (I3)

	// ProducedBy is the join that computed this match (InvalidJoinIndex for
	// an alpha-memory match, which no join computes). Unlike OwnerID, which
	// names whichever downstream join's beta memory this match currently
	// sits in (and is meaningless for a terminal match never entered into
	// one), ProducedBy is set once at creation and never changes — it is
	// what the retract pathway uses to find the match's ruleToActivate,
	// goalJoin and lastLevel regardless of whether the match is terminal.
	ProducedBy uint32

	NextInMemory PMID
	PrevInMemory PMID

	// AlphaNext/AlphaPrev thread an alpha-memory match through its own
	// alpha.AlphaMemory bucket chain, kept separate from NextInMemory/
	// PrevInMemory: a bcount=1 alpha-memory match is routinely also
	// entered into a first join's right (or left, for a negated/from-the-
	// right entry) beta memory, which needs its own, independent chain
	// through the same match. Sharing one pair of fields between both
	// roles would let a beta-memory insert silently corrupt the alpha
	// memory's bucket linkage (see DESIGN.md).
	AlphaNext PMID
	AlphaPrev PMID

	// Children: for an alpha-memory match, the head of the beta matches
	// that used it as their rightmost (or only) entry; for a beta match,
	// the head of its own left-children.
	Children       PMID
	RightParent    PMID
	NextRightChild PMID
	PrevRightChild PMID

	LeftParent    PMID
	NextLeftChild PMID
	PrevLeftChild PMID

	// Negated/exists join blocker bookkeeping (spec I2). BlockList is the
	// head of the left matches this match currently blocks (meaningful
	// when this match sits in a negated/exists join's right memory).
	// Blocker/NextBlocked/PrevBlocked thread a left match into its
	// blocker's BlockList. Blocker resolves the ambiguity left by the
	// original source, which recovers the anchor implicitly from call
	// context; see DESIGN.md.
	BlockList   PMID
	Blocker     PMID
	NextBlocked PMID
	PrevBlocked PMID

	// HasDependents is true iff truth-maintenance support records exist
	// for this match. The records themselves live in truth.Ledger, keyed
	// by ID, to avoid a match<->truth import cycle.
	HasDependents bool

	// AliasHead is the head of the fan-out clones threaded onto this match
	// by Clone: one alpha match wired to more than one join (engine.Assert)
	// or one beta match with more than one NextLink (drive.propagate) needs
	// an independent PartialMatch per destination, since OwnerKind/OwnerID/
	// HashValue/NextInMemory/PrevInMemory can only record membership in one
	// join's memory at a time. AliasNext threads a clone into its source's
	// AliasHead list. See DESIGN.md.
	AliasHead PMID
	AliasNext PMID
}

// InvalidJoinIndex marks a match with no producing join (an alpha-memory
// match). Named without a beta.JoinID type to avoid an import cycle.
const InvalidJoinIndex uint32 = 0xFFFFFFFF

// BCount returns the number of bind cells in the match.
func (p *PartialMatch) BCount() int { return len(p.Binds) }

func resetLinks(p *PartialMatch) {
	p.NextInMemory = InvalidPMID
	p.PrevInMemory = InvalidPMID
	p.AlphaNext = InvalidPMID
	p.AlphaPrev = InvalidPMID
	p.Children = InvalidPMID
	p.RightParent = InvalidPMID
	p.NextRightChild = InvalidPMID
	p.PrevRightChild = InvalidPMID
	p.LeftParent = InvalidPMID
	p.NextLeftChild = InvalidPMID
	p.PrevLeftChild = InvalidPMID
	p.BlockList = InvalidPMID
	p.Blocker = InvalidPMID
	p.NextBlocked = InvalidPMID
	p.PrevBlocked = InvalidPMID
	p.Marker = nil
	p.BetaMemory = false
	p.Busy = false
	p.RHSMemory = false
	p.Deleting = false
	p.GoalMarker = false
	p.HasDependents = false
	p.AliasHead = InvalidPMID
	p.AliasNext = InvalidPMID
	p.OwnerKind = OwnerNone
	p.OwnerID = 0
	p.HashValue = 0
	p.AlphaHashValue = 0
	p.ProducedBy = InvalidJoinIndex
}
