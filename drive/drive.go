// Package drive implements the assert pathway (spec §4.3 component C4):
// propagating newly satisfied partial matches downward through the beta
// network, creating beta-memory entries or, at a leaf join, an
// activation.
//
// A Driver is a thin orchestration layer over beta.Network: it owns no
// state of its own beyond the callbacks the engine supplies for
// activation creation and goal attachment (spec §4.3 "Creation side
// effect: if the join is a goalJoin, attach a goal").
package drive

import (
	"github.com/coregx/rete/beta"
	"github.com/coregx/rete/match"
)

// ActivateFunc creates (or refreshes) the activation for a partial match
// produced at a leaf join (one whose RuleToActivate is non-nil). The
// callback is expected to set pm.Marker itself (spec I3).
type ActivateFunc func(ctx any, store *match.Store, join beta.JoinID, pm match.PMID)

// AttachGoalFunc attaches a goal to a partial match produced at a
// goalJoin (spec §4.6/C6). Only called when the owning join has
// GoalJoin set.
type AttachGoalFunc func(ctx any, store *match.Store, pm match.PMID)

// WithdrawFunc tears down whatever a match previously drove downward
// (retract.Retractor.WithdrawPositiveConsequences). Wired in by the engine
// after both the Driver and the retractor exist, since Driver itself
// cannot import retract without a package cycle.
type WithdrawFunc func(ctx any, store *match.Store, pm match.PMID)

// Driver propagates partial matches through a beta.Network.
type Driver struct {
	net        *beta.Network
	activate   ActivateFunc
	attachGoal AttachGoalFunc
	withdraw   WithdrawFunc
}

// New creates a Driver bound to net. activate is required; attachGoal may
// be nil if the engine never configures a goalJoin.
func New(net *beta.Network, activate ActivateFunc, attachGoal AttachGoalFunc) *Driver {
	return &Driver{net: net, activate: activate, attachGoal: attachGoal}
}

// SetWithdraw wires the callback blockOrDriveFromRight uses to withdraw a
// previously-driven positive consequence the instant a new blocker
// arrives. Safe to leave unset — a nil withdraw simply means a newly
// blocked left match's stale consequence waits for the next retract that
// happens to walk it, instead of being torn down immediately.
func (d *Driver) SetWithdraw(fn WithdrawFunc) { d.withdraw = fn }

// PPDrive combines left and right into their positive consequence at join
// j and propagates it downward (spec §4.3 "produces a combined partial
// match and either drives further, inserts into the join's beta memory,
// or creates an activation at a leaf").
func (d *Driver) PPDrive(store *match.Store, ctx any, j beta.JoinID, left, right match.PMID) match.PMID {
	combined := d.combine(store, j, left, right)
	d.propagate(store, ctx, j, combined)
	return combined
}

// EPMDrive drives the "empty right" consequence used by the first join of
// a negated/right-entry branch when no right match currently blocks left
// (spec §4.3).
func (d *Driver) EPMDrive(store *match.Store, ctx any, j beta.JoinID, left match.PMID) match.PMID {
	combined := d.combine(store, j, left, match.InvalidPMID)
	d.propagate(store, ctx, j, combined)
	return combined
}

func (d *Driver) combine(store *match.Store, j beta.JoinID, left, right match.PMID) match.PMID {
	lpm := store.Get(left)
	var rBinds []match.GenericMatch
	if right != match.InvalidPMID {
		rBinds = store.Get(right).Binds
	}

	id := store.NewPartialMatch(len(lpm.Binds) + len(rBinds))
	pm := store.Get(id)
	n := copy(pm.Binds, lpm.Binds)
	copy(pm.Binds[n:], rBinds)

	match.LinkLeftChild(store, left, id)
	if right != match.InvalidPMID {
		match.LinkRightChild(store, right, id)
	}
	return id
}

// propagate inserts combined into join j's beta-memory-facing links, or —
// if j is a leaf — creates its activation and attaches a goal if j is a
// goalJoin.
func (d *Driver) propagate(store *match.Store, ctx any, j beta.JoinID, combined match.PMID) {
	jn := d.net.Join(j)
	pm := store.Get(combined)
	pm.BetaMemory = true
	pm.ProducedBy = uint32(j)

	if jn.GoalJoin {
		pm.GoalMarker = true
		if d.attachGoal != nil {
			d.attachGoal(ctx, store, combined)
		}
	}

	if jn.RuleToActivate != nil {
		d.activate(ctx, store, j, combined)
		return
	}

	// A join's output may itself fan out to more than one downstream join
	// (spec §1/§2's shared-network-structure-across-rules case): only the
	// first destination can reuse combined itself; every further
	// destination gets its own match.Clone, threaded onto combined's alias
	// list for retract, since a PartialMatch can only record membership in
	// one join's memory at a time.
	for i, link := range jn.NextLinks {
		m := combined
		if i > 0 {
			m = match.Clone(store, combined)
		}
		d.assertInto(store, ctx, link, m)
	}
}

// assertInto enters combined as the left or right input of link.Join,
// scanning the opposite memory and driving every satisfying pair (spec
// §4.2 "Assert from the left" / "Assert from the right").
func (d *Driver) assertInto(store *match.Store, ctx any, link beta.Link, pm match.PMID) {
	switch link.Direction {
	case beta.Left:
		d.AssertLeft(store, ctx, link.Join, pm)
	case beta.Right:
		d.AssertRight(store, ctx, link.Join, pm)
	}
}

// AssertLeft enters pm as a new left-memory candidate of join j: it is
// inserted into the left memory, then matched against every right-memory
// candidate (spec §4.2). Positive joins drive downward on each hit;
// negated joins record a blocking link instead; exists joins drive once,
// not per hit.
func (d *Driver) AssertLeft(store *match.Store, ctx any, j beta.JoinID, pm match.PMID) {
	d.net.InsertLeft(store, j, pm, d.net.HashLeft(ctx, j, store.Get(pm)))

	jn := d.net.Join(j)
	switch {
	case jn.PatternIsNegated || jn.PatternIsExists:
		d.assertLeftGuarded(store, ctx, j, pm)
	default:
		d.net.ScanRight(store, ctx, j, pm, func(right match.PMID) bool {
			ok, err := d.net.Test(store, ctx, j, pm, right)
			if err == nil && ok {
				d.PPDrive(store, ctx, j, pm, right)
			}
			return true
		})
	}
}

func (d *Driver) assertLeftGuarded(store *match.Store, ctx any, j beta.JoinID, pm match.PMID) {
	jn := d.net.Join(j)
	blocked := false
	firstHit := match.InvalidPMID

	d.net.ScanRight(store, ctx, j, pm, func(right match.PMID) bool {
		// An evaluation error counts as a conflict (spec §7).
		ok, err := d.net.Test(store, ctx, j, pm, right)
		if err == nil && !ok {
			return true
		}
		if sok, serr := d.net.SecondaryTest(store, ctx, j, pm, right); serr == nil && !sok {
			return true
		}
		blocked = true
		firstHit = right
		beta.AddBlock(store, pm, right)
		return false // a match carries one Blocker; stop at the first conflict
	})

	if !blocked {
		d.EPMDrive(store, ctx, j, pm)
		return
	}
	if jn.PatternIsExists {
		d.PPDrive(store, ctx, j, pm, firstHit)
	}
}

// AssertRight enters pm as a new right-memory candidate of join j:
// symmetric to AssertLeft. For positive joins, every matching left match
// drives downward; for negated/exists joins, a newly arriving right match
// may block previously unblocked left matches instead of driving.
func (d *Driver) AssertRight(store *match.Store, ctx any, j beta.JoinID, pm match.PMID) {
	d.net.InsertRight(store, j, pm, d.net.HashRight(ctx, j, store.Get(pm)))

	jn := d.net.Join(j)
	d.net.ScanLeft(store, ctx, j, pm, func(left match.PMID) bool {
		ok, err := d.net.Test(store, ctx, j, left, pm)
		if err != nil {
			// An evaluation error counts as a conflict on a negated/exists
			// join (spec §7) and as no match on a positive one.
			ok = jn.PatternIsNegated || jn.PatternIsExists
		}
		if !ok {
			return true
		}

		switch {
		case jn.PatternIsNegated || jn.PatternIsExists:
			if sok, serr := d.net.SecondaryTest(store, ctx, j, left, pm); serr != nil || sok {
				d.blockOrDriveFromRight(store, ctx, j, left, pm)
			}
		default:
			d.PPDrive(store, ctx, j, left, pm)
		}
		return true
	})
}

// blockOrDriveFromRight records right as a new blocker of left. If left was
// previously unblocked it may already have driven a positive (negated) or
// exists consequence downward; that consequence is now stale, so it is
// withdrawn immediately via withdraw rather than left for a future retract
// to discover (the inverse transition, blocker removed, is handled by
// retract's negEntryRetractAlpha re-driving left).
func (d *Driver) blockOrDriveFromRight(store *match.Store, ctx any, j beta.JoinID, left, right match.PMID) {
	if !beta.IsBlocked(store, left) {
		beta.AddBlock(store, left, right)
		if d.withdraw != nil {
			d.withdraw(ctx, store, left)
		}
	}
}
