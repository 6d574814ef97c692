// Package prefilter accelerates the alpha network's selector dispatch
// (spec §4.1: "Pattern nodes with selector=true dispatch via a hashed
// child table"). It is adapted from the teacher's prefilter package,
// which chooses among several literal-matching strategies depending on
// how many literals are involved; here the "literals" are a selector
// node's sibling dispatch keys rather than regex literals, and the goal
// is picking a child node id in one probe rather than finding a haystack
// position.
package prefilter

import "github.com/coregx/ahocorasick"

// smallDispatchThreshold is the sibling count below which a plain Go map
// already resolves a key in one hash probe and an Aho-Corasick automaton
// would only add build overhead for no benefit.
const smallDispatchThreshold = 8

// Dispatcher maps a selector key (the byte-string form of a discriminated
// (type, value) pair) to the arena id of the child pattern node it
// selects. It automatically chooses a plain map or an Aho-Corasick
// automaton depending on how many keys are registered.
type Dispatcher struct {
	small map[string]uint32

	automaton *ahocorasick.Automaton
	byKey     map[string]uint32 // matched key -> child id, for resolving an automaton hit
}

// Builder accumulates (key, childID) pairs before Build picks the
// dispatch strategy.
type Builder struct {
	keys [][]byte
	ids  []uint32
}

// NewBuilder creates an empty selector-dispatch builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers a sibling's dispatch key and the id of the child node it
// selects.
func (b *Builder) Add(key []byte, childID uint32) {
	dup := make([]byte, len(key))
	copy(dup, key)
	b.keys = append(b.keys, dup)
	b.ids = append(b.ids, childID)
}

// Build constructs the Dispatcher. Below smallDispatchThreshold keys it
// builds a plain map; at or above it, it compiles an Aho-Corasick
// automaton over the keys so that lookup stays a single scan even as the
// number of siblings at a discrimination level grows large (e.g. a
// template with hundreds of possible symbol values at one slot).
func (b *Builder) Build() (*Dispatcher, error) {
	if len(b.keys) < smallDispatchThreshold {
		m := make(map[string]uint32, len(b.keys))
		for i, k := range b.keys {
			m[string(k)] = b.ids[i]
		}
		return &Dispatcher{small: m}, nil
	}

	ahoBuilder := ahocorasick.NewBuilder()
	byKey := make(map[string]uint32, len(b.keys))
	for i, k := range b.keys {
		ahoBuilder.AddPattern(k)
		byKey[string(k)] = b.ids[i]
	}
	automaton, err := ahoBuilder.Build()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{automaton: automaton, byKey: byKey}, nil
}

// Lookup resolves key to the child node id it selects, if any.
func (d *Dispatcher) Lookup(key []byte) (childID uint32, ok bool) {
	if d.small != nil {
		id, found := d.small[string(key)]
		return id, found
	}

	m := d.automaton.Find(key, 0)
	if m == nil {
		return 0, false
	}
	if m.Start != 0 || m.End != len(key) {
		// Only an exact, whole-key match selects a child: a sibling
		// key that merely prefixes or overlaps ours is not a match.
		return 0, false
	}
	id, found := d.byKey[string(key[m.Start:m.End])]
	return id, found
}
