package alpha

import (
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/match"
)

// AMemID identifies an alpha memory within a Network.
type AMemID uint32

// InvalidAMem marks the absence of an alpha memory reference.
const InvalidAMem AMemID = 0xFFFFFFFF

// HashFunc computes the bucket an entity hashes to for a given alpha
// memory's right-hash expression. A nil HashFunc means "always bucket 0"
// (spec §4.1: "computing each memory's hash bucket from the node's
// rightHash expression, or bucket 0 if absent").
type HashFunc func(ctx any, e entity.Entity) uint64

// MarkerFunc produces the multifield markers (spec §3) for an entity
// matching a terminal pattern, if the pattern has any $? restrictions.
type MarkerFunc func(ctx any, e entity.Entity) []match.MultifieldMarker

// AlphaMemory is the per-pattern-node container of alpha matches, hashed
// by a computed bucket (spec §3 Alpha Memory).
type AlphaMemory struct {
	ID         AMemID
	Node       NodeID
	RightHash  HashFunc
	MarkerFunc MarkerFunc
	Buckets    map[uint64]match.PMID // bucket -> head of a doubly linked list
}

// PatternMatchRecord is the Go analogue of CLIPS's patternMatch list
// threaded through an entity: it records which alpha memory a successful
// match landed in and which partial match wraps it, so the entity's owner
// (the external working-memory store) can hand the whole list back to
// retract.NetworkRetract when the entity is retracted.
type PatternMatchRecord struct {
	AlphaMemory AMemID
	Match       match.PMID
}

// NewAlphaMemory attaches a new alpha memory to node, returning its id.
func (n *Network) NewAlphaMemory(node NodeID, rightHash HashFunc, markers MarkerFunc) AMemID {
	id := AMemID(len(n.memories))
	n.memories = append(n.memories, AlphaMemory{
		ID:         id,
		Node:       node,
		RightHash:  rightHash,
		MarkerFunc: markers,
		Buckets:    make(map[uint64]match.PMID),
	})
	pn := &n.nodes[node]
	pn.Stop = true
	pn.AlphaMemories = append(pn.AlphaMemories, id)
	return id
}

// Memory returns a pointer to the alpha memory for id.
func (n *Network) Memory(id AMemID) *AlphaMemory { return &n.memories[id] }

// Enter inserts e into every alpha memory reached by a satisfying walk of
// the discrimination network, returning the list of records the caller
// must retain and later hand to retract.NetworkRetract (spec §4.1
// "enter(entity)").
func (n *Network) Enter(store *match.Store, ctx any, e entity.Entity) ([]PatternMatchRecord, error) {
	var out []PatternMatchRecord
	err := n.enterNode(n.root, store, ctx, e, &out)
	return out, err
}

func (n *Network) enterNode(id NodeID, store *match.Store, ctx any, e entity.Entity, out *[]PatternMatchRecord) error {
	node := &n.nodes[id]

	if node.NetworkTest != nil {
		ok, err := node.NetworkTest(ctx, e)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if node.Stop {
		for _, amID := range node.AlphaMemories {
			pmID, err := n.insertMatch(store, amID, ctx, e)
			if err != nil {
				return err
			}
			*out = append(*out, PatternMatchRecord{AlphaMemory: amID, Match: pmID})
		}
	}

	if node.Selector && node.dispatch != nil && node.SelectorKey != nil {
		key, ok := node.SelectorKey(ctx, e)
		if !ok {
			return nil
		}
		childID, found := node.dispatch.Lookup(key)
		if !found {
			return nil
		}
		return n.enterNode(NodeID(childID), store, ctx, e, out)
	}

	for child := node.NextLevel; child != InvalidNode; child = n.nodes[child].RightNode {
		if err := n.enterNode(child, store, ctx, e, out); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) insertMatch(store *match.Store, amID AMemID, ctx any, e entity.Entity) (match.PMID, error) {
	mem := &n.memories[amID]

	var bucket uint64
	if mem.RightHash != nil {
		bucket = mem.RightHash(ctx, e)
	}
	var markers []match.MultifieldMarker
	if mem.MarkerFunc != nil {
		markers = mem.MarkerFunc(ctx, e)
	}

	amID2 := store.NewAlphaMatch(e, markers, bucket)
	pmID := store.NewPartialMatch(1)
	pm := store.Get(pmID)
	pm.Binds[0].Alpha = amID2
	pm.OwnerKind = match.OwnerAlphaMemory
	pm.OwnerID = uint32(amID)
	pm.HashValue = bucket
	pm.AlphaHashValue = bucket
	pm.BetaMemory = false

	mem.insert(store, pmID)
	return pmID, nil
}

// RemoveMatch unlinks a partial match from its alpha memory's bucket list.
// Called by the retract pathway once all downstream consequences of the
// match have been processed (spec §4.4.1 step 4).
func (n *Network) RemoveMatch(store *match.Store, amID AMemID, id match.PMID) {
	n.memories[amID].remove(store, id)
}

func (mem *AlphaMemory) insert(store *match.Store, id match.PMID) {
	pm := store.Get(id)
	head, ok := mem.Buckets[pm.AlphaHashValue]
	pm.AlphaPrev = match.InvalidPMID
	if ok {
		store.Get(head).AlphaPrev = id
	}
	pm.AlphaNext = head
	mem.Buckets[pm.AlphaHashValue] = id
}

func (mem *AlphaMemory) remove(store *match.Store, id match.PMID) {
	pm := store.Get(id)

	if pm.AlphaPrev != match.InvalidPMID {
		store.Get(pm.AlphaPrev).AlphaNext = pm.AlphaNext
	} else if pm.AlphaNext != match.InvalidPMID {
		mem.Buckets[pm.AlphaHashValue] = pm.AlphaNext
	} else {
		delete(mem.Buckets, pm.AlphaHashValue)
	}

	if pm.AlphaNext != match.InvalidPMID {
		store.Get(pm.AlphaNext).AlphaPrev = pm.AlphaPrev
	}

	pm.AlphaNext = match.InvalidPMID
	pm.AlphaPrev = match.InvalidPMID
}

// Bucket iterates the alpha matches in memory amID's bucket for hash,
// head-to-tail, calling visit for each partial match id. The beta
// network's join scans and the retract pathway's conflict search do not
// use it: they scan beta memories.
func (n *Network) Bucket(store *match.Store, amID AMemID, hash uint64, visit func(match.PMID) bool) {
	mem := &n.memories[amID]
	cur, ok := mem.Buckets[hash]
	if !ok {
		return
	}
	for cur != match.InvalidPMID {
		next := store.Get(cur).AlphaNext
		if !visit(cur) {
			return
		}
		cur = next
	}
}
