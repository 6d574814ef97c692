// Package truth implements logical-dependency bookkeeping (spec §4.6
// component C6): when a rule's RHS asserts an entity under a logical
// conditional, the firing partial match becomes that entity's support.
// Losing all support schedules the entity for retraction.
//
// The ledger only tracks the dependency graph itself; the partial match
// and entity arenas are external (match.Store and the caller's own
// working-memory store, reached only through entity.Ref), matching the
// spec's "Dependency Record" as a pair of symmetric linked lists rather
// than a single owning structure.
package truth

import "github.com/coregx/rete/match"

// NoCertaintyFactor marks a dependency with no certainty-factor support
// (spec §4.6 "[cf]" is optional).
const NoCertaintyFactor = int16(0x7FFF)

// MinCF and MaxCF bound a certainty factor (spec §4.6 "[-10000, +10000]").
const (
	MinCF = int16(-10000)
	MaxCF = int16(10000)
)

// RetractFunc asks the external working-memory store to retract ref. The
// ledger calls it only for entities that have just lost their last unit
// of logical support; it is the caller's responsibility to ignore the
// request if ref also has independent (non-logical) support.
type RetractFunc func(ctx any, ref any)

type dependency struct {
	entity any
	cf     int16
}

// Ledger is the dependency-record store for one engine.Environment.
type Ledger struct {
	byMatch  map[match.PMID][]dependency
	byEntity map[any][]match.PMID

	certaintyFactors bool
	retract          RetractFunc
	pending          []any
}

// NewLedger creates an empty ledger. retract is called by
// ForceLogicalRetractions for entities that lose their last support.
func NewLedger(retract RetractFunc, certaintyFactors bool) *Ledger {
	return &Ledger{
		byMatch:          make(map[match.PMID][]dependency),
		byEntity:         make(map[any][]match.PMID),
		retract:          retract,
		certaintyFactors: certaintyFactors,
	}
}

// AddSupport records that pm provides logical support for ref, with an
// optional certainty factor. A ledger created with certainty factors
// disabled ignores cf and records NoCertaintyFactor.
func (l *Ledger) AddSupport(store *match.Store, pm match.PMID, ref any, cf int16) {
	if !l.certaintyFactors {
		cf = NoCertaintyFactor
	}
	l.byMatch[pm] = append(l.byMatch[pm], dependency{entity: ref, cf: cf})
	l.byEntity[ref] = append(l.byEntity[ref], pm)
	store.Get(pm).HasDependents = true
}

// Supporters returns the partial matches currently supporting ref.
func (l *Ledger) Supporters(ref any) []match.PMID {
	return l.byEntity[ref]
}

// MaxCF returns the strongest certainty factor among ref's current
// supporters (spec §4.6 "combined support... is the max of contributors'
// cf values"), and false if ref has no supporters.
func (l *Ledger) MaxCF(ref any) (int16, bool) {
	best := MinCF - 1
	found := false
	for _, supporter := range l.byEntity[ref] {
		for _, dep := range l.byMatch[supporter] {
			if dep.entity == ref && dep.cf != NoCertaintyFactor {
				found = true
				if dep.cf > best {
					best = dep.cf
				}
			}
		}
	}
	if !found {
		return 0, false
	}
	return best, true
}

// RemoveLogicalSupport removes pm's dependency records — the per-match
// and per-entity linkages — and schedules any entity that drops to zero
// remaining supporters for retraction (spec §4.6). Call this (not
// RemovePMDependencies) while pm is still a live lineage member, e.g.
// from PosEntryRetractBeta step 6.
func (l *Ledger) RemoveLogicalSupport(pm match.PMID) {
	l.detach(pm, true)
}

// RemovePMDependencies is functionally identical to RemoveLogicalSupport,
// named separately to mirror the two call sites the original source
// distinguishes (the second for a match already fully unlinked). Nothing
// in this port calls it: the retract pathway calls RemoveLogicalSupport
// before handing a match to gc.List.ReturnPartialMatch.
func (l *Ledger) RemovePMDependencies(pm match.PMID) {
	l.detach(pm, true)
}

// DestroyPMDependencies tears down pm's dependency records without
// scheduling any cascading retraction, for environment teardown.
func (l *Ledger) DestroyPMDependencies(pm match.PMID) {
	l.detach(pm, false)
}

func (l *Ledger) detach(pm match.PMID, cascade bool) {
	deps, ok := l.byMatch[pm]
	if !ok {
		return
	}
	delete(l.byMatch, pm)

	for _, dep := range deps {
		supporters := l.byEntity[dep.entity]
		for i, s := range supporters {
			if s == pm {
				supporters = append(supporters[:i], supporters[i+1:]...)
				break
			}
		}
		if len(supporters) == 0 {
			delete(l.byEntity, dep.entity)
			if cascade {
				l.pending = append(l.pending, dep.entity)
			}
		} else {
			l.byEntity[dep.entity] = supporters
		}
	}
}

// ForceLogicalRetractions drains the pending-retraction queue, invoking
// retract for each entity that lost its last support, iterating to a
// fixed point since each retraction can itself remove support from
// further entities (spec §4.6 "runs at a safe point and iterates to fixed
// point"). Safe to call with an empty queue.
func (l *Ledger) ForceLogicalRetractions(ctx any) {
	for len(l.pending) > 0 {
		next := l.pending
		l.pending = nil
		for _, ref := range next {
			l.retract(ctx, ref)
		}
	}
}

// Pending reports how many entities are currently queued for forced
// retraction, for tests.
func (l *Ledger) Pending() int { return len(l.pending) }
