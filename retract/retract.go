// Package retract implements the retraction pathway (spec §4.4 component
// C5 — "the hard part"): walking the lineage a retracted alpha match
// leaves behind, withdrawing stale activations, re-evaluating negated and
// exists joins for re-satisfaction, and handing freed matches to gc.
//
// Every function here is grounded directly on original_source/src/retract.c:
// NetworkRetract/NetworkRetractMatch, PosEntryRetractAlpha,
// NegEntryRetractAlpha, NegEntryRetractBeta, PosEntryRetractBeta and
// FindNextConflictingMatch keep those names (lower-cased per Go
// convention) because the control flow, not just the intent, is carried
// over line by line.
package retract

import (
	"fmt"

	"github.com/coregx/rete/agenda"
	"github.com/coregx/rete/alpha"
	"github.com/coregx/rete/beta"
	"github.com/coregx/rete/drive"
	"github.com/coregx/rete/gc"
	"github.com/coregx/rete/match"
	"github.com/coregx/rete/truth"
	"go.uber.org/zap"
)

// GoalHooks lets the engine plug goal-support bookkeeping into the
// retraction walk without the retract package needing to know the shape
// of a goal expression (spec §4.6 cross-reference from §4.4.2/4.4.4). A
// nil *GoalHooks, or nil fields within one, makes the corresponding step
// a no-op — this port implements the goal subsystem only to the depth
// the retract pathway itself needs (see DESIGN.md).
type GoalHooks struct {
	// Update is called when a beta match carrying a live goal marker is
	// about to be torn down, so its goal attachment can be marked stale
	// or reattached elsewhere.
	Update func(ctx any, store *match.Store, pm match.PMID, outOfDate bool)
}

// Retractor holds the collaborators the retraction walk drives: the join
// network it searches for re-satisfaction, the driver it replays
// PPDrive/EPMDrive through, the scheduler it withdraws activations from,
// and the truth ledger it detaches logical support through.
type Retractor struct {
	Alpha  *alpha.Network
	Beta   *beta.Network
	Drive  *drive.Driver
	Sched  agenda.Scheduler
	Ledger *truth.Ledger
	GC     *gc.List
	Goals  *GoalHooks
	Log    *zap.Logger
}

// New creates a Retractor. sched, ledger and log may be nil; a nil
// sched/ledger simply means this environment never configured activations
// or logical support.
func New(a *alpha.Network, b *beta.Network, d *drive.Driver, sched agenda.Scheduler, ledger *truth.Ledger, g *gc.List, log *zap.Logger) *Retractor {
	return &Retractor{Alpha: a, Beta: b, Drive: d, Sched: sched, Ledger: ledger, GC: g, Log: log}
}

// WithdrawPositiveConsequences tears down whatever a match previously
// drove downward, without touching the match itself or its membership in
// any join's memory (spec P4/P5: a negated join's left match that was
// unblocked a moment ago, and so already produced a positive consequence,
// must have that consequence withdrawn the instant a new blocker arrives —
// the mirror image of negEntryRetractAlpha's re-drive when a blocker is
// later removed). A no-op if pm never drove anything downward.
func (r *Retractor) WithdrawPositiveConsequences(store *match.Store, ctx any, pm match.PMID) {
	bm := store.Get(pm)
	if bm.Children == match.InvalidPMID {
		return
	}
	r.posEntryRetractBeta(store, ctx, pm, bm.Children)
}

// NetworkRetract retracts every alpha-memory match recorded for an entity
// (spec §4.4.1 "Entry"): records is the []alpha.PatternMatchRecord the
// caller accumulated from alpha.Network.Enter when the entity was
// asserted.
func (r *Retractor) NetworkRetract(store *match.Store, ctx any, records []alpha.PatternMatchRecord) {
	for _, rec := range records {
		r.NetworkRetractMatch(store, ctx, rec)
	}
}

// NetworkRetractMatch retracts a single alpha-memory match: it cascades
// through every positive and negated/exists consequence the match fed,
// unlinks the match from whichever join's beta memory it was itself
// entered into (the normal case for any pattern beyond a rule's first),
// unlinks it from its alpha memory, and returns it to gc.
func (r *Retractor) NetworkRetractMatch(store *match.Store, ctx any, rec alpha.PatternMatchRecord) {
	pm := store.Get(rec.Match)
	pm.Deleting = true
	hasChildren := pm.Children != match.InvalidPMID
	hasBlockers := pm.BlockList != match.InvalidPMID

	if hasChildren {
		r.posEntryRetractAlpha(store, ctx, rec.Match)
		pm = store.Get(rec.Match)
	}
	if hasBlockers {
		r.negEntryRetractAlpha(store, ctx, rec.Match)
		pm = store.Get(rec.Match)
	}

	r.unlinkMemory(store, pm)
	r.retractAliases(store, ctx, rec.Match)
	r.Alpha.RemoveMatch(store, rec.AlphaMemory, rec.Match)
	r.GC.ReturnPartialMatch(rec.Match)
}

// retractAliases tears down every fan-out clone threaded onto canonical's
// AliasHead list (match.Clone): one alpha match wired to more than one
// join, or one beta match with more than one NextLink, gets an
// independent PartialMatch per destination beyond the first, and each one
// can independently have its own Children subtree, BlockList, or join
// memory membership that canonical's own cascade never touches. Clones
// are never registered in any alpha.AlphaMemory bucket, so — unlike
// canonical — there is no Alpha.RemoveMatch call for them.
func (r *Retractor) retractAliases(store *match.Store, ctx any, canonical match.PMID) {
	alias := store.Get(canonical).AliasHead
	for alias != match.InvalidPMID {
		am := store.Get(alias)
		next := am.AliasNext

		if am.Children != match.InvalidPMID {
			r.posEntryRetractBeta(store, ctx, alias, am.Children)
			am = store.Get(alias)
		}
		if am.BlockList != match.InvalidPMID {
			r.negEntryRetractAlpha(store, ctx, alias)
			am = store.Get(alias)
		}

		r.unlinkMemory(store, am)
		if am.HasDependents {
			r.Ledger.RemoveLogicalSupport(alias)
		}
		r.GC.ReturnPartialMatch(alias)

		alias = next
	}
	store.Get(canonical).AliasHead = match.InvalidPMID
}

// posEntryRetractAlpha withdraws every positive consequence of an
// alpha-memory match being retracted (spec §4.4.2): it walks the match's
// right-children list (the beta matches that used it as their rightmost
// entry), recursing into each one's own children first, withdrawing
// negated/exists blockers it anchors, withdrawing its activation, and
// finally detaching it from its owning join's memory and lineage.
func (r *Retractor) posEntryRetractAlpha(store *match.Store, ctx any, alphaMatchID match.PMID) {
	betaMatch := store.Get(alphaMatchID).Children

	var lastJoin beta.JoinID = beta.InvalidJoin
	if betaMatch != match.InvalidPMID {
		producer := beta.JoinID(store.Get(betaMatch).ProducedBy)
		lastJoin = r.Beta.Join(producer).LastLevel
	}

	for betaMatch != match.InvalidPMID {
		bm := store.Get(betaMatch)
		jn := r.Beta.Join(beta.JoinID(bm.ProducedBy))

		if bm.Children != match.InvalidPMID {
			r.posEntryRetractBeta(store, ctx, betaMatch, bm.Children)
			bm = store.Get(betaMatch)
		}

		if bm.BlockList != match.InvalidPMID {
			r.negEntryRetractAlpha(store, ctx, betaMatch)
			bm = store.Get(betaMatch)
		}

		if jn.RuleToActivate != nil && bm.Marker != nil {
			r.Sched.RemoveActivation(ctx, bm.Marker, true, true)
		}

		var goalMatch match.PMID = match.InvalidPMID
		if lastJoin != beta.InvalidJoin && r.Beta.Join(lastJoin).GoalJoin && bm.LeftParent != match.InvalidPMID {
			goalMatch = bm.LeftParent
		}
		if bm.GoalMarker && bm.Marker != nil && r.Goals != nil && r.Goals.Update != nil {
			r.Goals.Update(ctx, store, betaMatch, true)
		}

		next := bm.NextRightChild

		r.unlinkBetaFull(store, bm)
		r.retractAliases(store, ctx, betaMatch)

		if goalMatch != match.InvalidPMID && r.Goals != nil && r.Goals.Update != nil {
			if store.Get(goalMatch).Children == match.InvalidPMID {
				r.Goals.Update(ctx, store, goalMatch, false)
			}
		}

		r.deletePartialMatch(store, betaMatch)
		betaMatch = next
	}

	// After the loop, a first join's goal re-anchors on its left prime
	// match once the entity that just retracted was the sole alpha entry
	// left for it — mirrored from original_source/src/retract.c's final
	// AttachGoal call in PosEntryRetractAlpha. Sole-entry is checked before
	// unlinkMemory/Alpha.RemoveMatch run (NetworkRetractMatch does that
	// after this function returns), so alphaMatchID is still its alpha
	// memory bucket's only member iff it has no alpha-chain neighbors.
	if lastJoin != beta.InvalidJoin && r.Beta.Join(lastJoin).FirstJoin && r.Beta.Join(lastJoin).GoalJoin {
		am := store.Get(alphaMatchID)
		if am.AlphaPrev == match.InvalidPMID && am.AlphaNext == match.InvalidPMID {
			if leftPrime := r.Beta.LeftPrime(store, lastJoin); leftPrime != match.InvalidPMID {
				if r.Goals != nil && r.Goals.Update != nil {
					r.Goals.Update(ctx, store, leftPrime, false)
				}
			}
		}
	}
}

// posEntryRetractBeta withdraws the positive consequences rooted under a
// beta match's own left-children subtree (spec §4.4.4), an iterative
// depth-first walk mirroring the original's loop over
// children/nextLeftChild/leftParent: descend into Children while present;
// at a leaf, advance to NextLeftChild, or pop to LeftParent (clearing its
// Children pointer) when the chain at this level is exhausted. parentMatch
// is the match whose subtree is being drained; the walk stops once it
// pops back up to parentMatch.
func (r *Retractor) posEntryRetractBeta(store *match.Store, ctx any, parentMatch, start match.PMID) {
	betaMatch := start
	for betaMatch != match.InvalidPMID {
		bm := store.Get(betaMatch)
		if bm.Children != match.InvalidPMID {
			betaMatch = bm.Children
			continue
		}

		var next match.PMID
		if bm.NextLeftChild != match.InvalidPMID {
			next = bm.NextLeftChild
		} else {
			next = bm.LeftParent
			if bm.LeftParent != match.InvalidPMID {
				store.Get(bm.LeftParent).Children = match.InvalidPMID
			}
		}

		jn := r.Beta.Join(beta.JoinID(bm.ProducedBy))

		if bm.BlockList != match.InvalidPMID {
			r.negEntryRetractAlpha(store, ctx, betaMatch)
			bm = store.Get(betaMatch)
		} else if jn.RuleToActivate != nil && bm.Marker != nil {
			r.Sched.RemoveActivation(ctx, bm.Marker, true, true)
		}

		r.unlinkNonLeftLineage(store, bm)
		r.retractAliases(store, ctx, betaMatch)

		if bm.GoalMarker && bm.Marker != nil && r.Goals != nil && r.Goals.Update != nil {
			r.Goals.Update(ctx, store, betaMatch, true)
		}

		if bm.HasDependents {
			r.Ledger.RemoveLogicalSupport(betaMatch)
		}

		r.GC.ReturnPartialMatch(betaMatch)

		if next == parentMatch {
			return
		}
		betaMatch = next
	}
}

// negEntryRetractAlpha walks the list of left matches an alpha match
// currently blocks (spec §4.4.3), re-evaluating each one for
// re-satisfaction now that one of its blockers is going away. A blocker
// anchored on a join that is neither negated, exists, nor from-the-right
// is an internal-consistency violation (spec §4.4.6): it is logged and
// skipped rather than retried, advancing past it by NextBlocked so the
// rest of the chain is still processed.
func (r *Retractor) negEntryRetractAlpha(store *match.Store, ctx any, alphaMatchID match.PMID) {
	betaMatch := store.Get(alphaMatchID).BlockList
	for betaMatch != match.InvalidPMID {
		bm := store.Get(betaMatch)
		joinID := beta.JoinID(bm.OwnerID)
		jn := r.Beta.Join(joinID)

		if !jn.PatternIsNegated && !jn.PatternIsExists && !jn.JoinFromTheRight {
			if r.Log != nil {
				err := errBlockerOnPlainJoin(fmt.Sprintf("join %d", joinID))
				r.Log.Error(err.Error(), zap.Uint32("join", uint32(joinID)))
			}
			betaMatch = bm.NextBlocked
			continue
		}

		r.negEntryRetractBeta(store, ctx, joinID, alphaMatchID, betaMatch)
		betaMatch = store.Get(alphaMatchID).BlockList
	}
}

// negEntryRetractBeta is the re-satisfaction core (spec §4.4.3): a left
// match that is losing one of its blockers is re-tested against the rest
// of the join's right memory after that blocker. Finding another conflicting match just
// transfers the block; finding none drives the match's now-unblocked
// consequence downward, using EPMDrive for a first-join negated/
// from-the-right pattern and PPDrive otherwise. An exists join instead
// recurses into whatever positive consequences the match had already
// produced while it still held a witness.
func (r *Retractor) negEntryRetractBeta(store *match.Store, ctx any, joinID beta.JoinID, alphaMatchID, betaMatchID match.PMID) {
	beta.RemoveBlock(store, betaMatchID)

	jn := r.Beta.Join(joinID)
	nextCandidate := store.Get(alphaMatchID).NextInMemory

	if r.findNextConflictingMatch(store, ctx, joinID, betaMatchID, nextCandidate) {
		return
	}

	if jn.PatternIsExists {
		bm := store.Get(betaMatchID)
		if bm.Children != match.InvalidPMID {
			r.posEntryRetractBeta(store, ctx, betaMatchID, bm.Children)
		}
		return
	}

	if jn.FirstJoin && (jn.PatternIsNegated || jn.JoinFromTheRight) {
		ok, err := r.Beta.SecondaryTest(store, ctx, joinID, betaMatchID, match.InvalidPMID)
		if err != nil || !ok {
			return
		}
		r.Drive.EPMDrive(store, ctx, joinID, betaMatchID)
		return
	}

	ok, err := r.Beta.SecondaryTest(store, ctx, joinID, betaMatchID, match.InvalidPMID)
	if err != nil || !ok {
		return
	}
	if r.partialMatchWillBeDeleted(store, ctx, betaMatchID) {
		return
	}
	r.Drive.PPDrive(store, ctx, joinID, betaMatchID, match.InvalidPMID)
}

// findNextConflictingMatch scans a join's right memory starting at
// possibleConflicts, looking for another match that still conflicts with
// theBind (spec §4.4.3). Candidates that are defunct or about to be
// deleted are skipped. A join-test evaluation error is treated as a
// conservative match (spec §7 "fail closed"), matching the original's
// treatment of expression-evaluation errors during retract as true. The
// first conflicting candidate found is recorded as theBind's new blocker
// and the scan stops.
func (r *Retractor) findNextConflictingMatch(store *match.Store, ctx any, joinID beta.JoinID, theBind, possibleConflicts match.PMID) bool {
	found := match.InvalidPMID
	r.Beta.ScanRightFrom(store, joinID, possibleConflicts, match.InvalidPMID, func(cur match.PMID) bool {
		if r.partialMatchDefunct(store, ctx, cur) || r.partialMatchWillBeDeleted(store, ctx, cur) {
			return true
		}
		ok, err := r.Beta.Test(store, ctx, joinID, theBind, cur)
		if err != nil || ok {
			found = cur
			return false
		}
		return true
	})
	if found == match.InvalidPMID {
		return false
	}
	beta.AddBlock(store, theBind, found)
	return true
}

// partialMatchDefunct reports whether a partial match has been marked
// deleting or has a bind whose captured entity no longer agrees with what
// the pattern network last saw for it (spec I5).
func (r *Retractor) partialMatchDefunct(store *match.Store, ctx any, id match.PMID) bool {
	pm := store.Get(id)
	if pm.Deleting {
		return true
	}
	for _, b := range pm.Binds {
		if b.Alpha == match.InvalidAMID {
			continue
		}
		if !store.GetAlpha(b.Alpha).Entity.Synchronized(ctx) {
			return true
		}
	}
	return false
}

// partialMatchWillBeDeleted reports whether a partial match is marked
// deleting or has a bind whose entity has already been marked deleted by
// the working-memory store, even if the core's own retraction of it
// hasn't completed yet. InvalidPMID is never considered "will be deleted".
func (r *Retractor) partialMatchWillBeDeleted(store *match.Store, ctx any, id match.PMID) bool {
	if id == match.InvalidPMID {
		return false
	}
	pm := store.Get(id)
	if pm.Deleting {
		return true
	}
	for _, b := range pm.Binds {
		if b.Alpha == match.InvalidAMID {
			continue
		}
		if store.GetAlpha(b.Alpha).Entity.IsDeleted(ctx) {
			return true
		}
	}
	return false
}

// unlinkBetaFull detaches a beta match from its owning join's memory (if
// it is a member of one — a terminal match produced at a leaf join never
// was) and from its left-children lineage. Used at the top level of
// posEntryRetractAlpha, where the traversal itself advances via
// NextRightChild rather than through UnlinkRightChild.
func (r *Retractor) unlinkBetaFull(store *match.Store, bm *match.PartialMatch) {
	r.unlinkMemory(store, bm)
	match.UnlinkLeftChild(store, bm.ID)
}

// unlinkNonLeftLineage detaches a beta match from its owning join's
// memory (if any) and from its right-parent's right-children lineage,
// used by posEntryRetractBeta where the traversal advances via
// NextLeftChild/LeftParent and must not disturb the left-children list it
// is walking.
func (r *Retractor) unlinkNonLeftLineage(store *match.Store, bm *match.PartialMatch) {
	r.unlinkMemory(store, bm)
	match.UnlinkRightChild(store, bm.ID)
}

// unlinkMemory removes bm from whichever join's beta memory it is
// currently a member of. A match produced at a terminal (leaf) join was
// never entered into any further join's memory, so OwnerKind stays
// OwnerNone and there is nothing to remove here.
func (r *Retractor) unlinkMemory(store *match.Store, bm *match.PartialMatch) {
	if bm.OwnerKind != match.OwnerJoin {
		return
	}
	joinID := beta.JoinID(bm.OwnerID)
	if bm.RHSMemory {
		r.Beta.RemoveRight(store, joinID, bm.ID)
	} else {
		r.Beta.RemoveLeft(store, joinID, bm.ID)
	}
}

// deletePartialMatch detaches any remaining logical-support dependencies
// before handing a match back to gc, mirroring DeletePartialMatches'
// single-entry case in the original source.
func (r *Retractor) deletePartialMatch(store *match.Store, id match.PMID) {
	if store.Get(id).HasDependents {
		r.Ledger.RemoveLogicalSupport(id)
	}
	r.GC.ReturnPartialMatch(id)
}
