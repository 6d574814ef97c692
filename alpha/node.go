// Package alpha implements the discrimination (pattern) network (spec §3
// Pattern Node, §4.1 component C2): a shared trie of per-template tests
// that routes asserted entities into hashed alpha memories.
//
// Node identity is a stable arena index (NodeID), mirroring the teacher's
// nfa.StateID arena. A Network owns the node arena and is driven entirely
// through an engine-supplied *match.Store; it holds no package-level
// state.
package alpha

import (
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/prefilter"
)

// NodeID identifies a pattern node in a Network's arena.
type NodeID uint32

// InvalidNode marks the absence of a pattern node reference.
const InvalidNode NodeID = 0xFFFFFFFF

// Test is a compiled predicate evaluated against a candidate entity at one
// discrimination level. The pattern compiler that produces these is out of
// scope (spec §1); the network only calls them.
type Test func(ctx any, e entity.Entity) (bool, error)

// SelectorKeyFunc extracts the dispatch key a selector node's networkTest
// reduces an entity to, so siblings can be tried by a single hashed/
// Aho-Corasick probe instead of a linear scan (spec §4.1).
type SelectorKeyFunc func(ctx any, e entity.Entity) (key []byte, ok bool)

// PatternNode is one node of the discrimination trie (spec §3 Pattern
// Node).
type PatternNode struct {
	ID NodeID

	NextLevel          NodeID // first child (tried first in a walk)
	LastLevel          NodeID // parent
	LeftNode, RightNode NodeID // siblings at the same level

	NetworkTest Test

	SingleField bool
	Multifield  bool
	Stop        bool // terminal: has attached alpha memories
	BeginSlot   bool
	EndSlot     bool
	Selector    bool

	// ModifySlots is non-nil for nodes that distinguish specific slots of
	// a modifying template; bit i set means slot i is distinguished here.
	ModifySlots []bool

	AlphaMemories []AMemID

	SelectorKey SelectorKeyFunc
	dispatch    *prefilter.Dispatcher // built once children are known
}

// Network is the arena of pattern nodes and the alpha memories attached to
// their terminal ("stop") nodes.
type Network struct {
	nodes     []PatternNode
	memories  []AlphaMemory
	root      NodeID
}

// NewNetwork creates an empty discrimination network with a single root
// node that has no test (every entity passes it) and no parent.
func NewNetwork() *Network {
	n := &Network{}
	root := n.newNode()
	n.nodes[root].LastLevel = InvalidNode
	n.root = root
	return n
}

// Root returns the network's root node id.
func (n *Network) Root() NodeID { return n.root }

func (n *Network) newNode() NodeID {
	id := NodeID(len(n.nodes))
	n.nodes = append(n.nodes, PatternNode{
		ID:        id,
		NextLevel: InvalidNode,
		LastLevel: InvalidNode,
		LeftNode:  InvalidNode,
		RightNode: InvalidNode,
	})
	return id
}

// Node returns a pointer to the node for id. Valid until the next AddChild
// call grows the arena.
func (n *Network) Node(id NodeID) *PatternNode { return &n.nodes[id] }

// AddChild appends a new child of parent, linking it after parent's
// existing children via RightNode/LeftNode sibling pointers (tries at the
// same level, per spec §3).
func (n *Network) AddChild(parent NodeID, test Test) NodeID {
	child := n.newNode()
	n.nodes[child].LastLevel = parent
	n.nodes[child].NetworkTest = test

	p := &n.nodes[parent]
	if p.NextLevel == InvalidNode {
		p.NextLevel = child
		return child
	}
	last := p.NextLevel
	for n.nodes[last].RightNode != InvalidNode {
		last = n.nodes[last].RightNode
	}
	n.nodes[last].RightNode = child
	n.nodes[child].LeftNode = last
	return child
}

// BuildSelectorDispatch compiles the hashed/Aho-Corasick child dispatch
// table for a selector node, once all of its children and their dispatch
// keys are known. keyOf must return the same key SelectorKeyFunc will
// produce for an entity that should route to child.
func (n *Network) BuildSelectorDispatch(node NodeID, children []NodeID, keyOf func(NodeID) []byte) error {
	b := prefilter.NewBuilder()
	for _, c := range children {
		b.Add(keyOf(c), uint32(c))
	}
	d, err := b.Build()
	if err != nil {
		return err
	}
	n.nodes[node].dispatch = d
	n.nodes[node].Selector = true
	return nil
}

// Walk performs the traversal described in spec §4.1: descend via
// NextLevel first; when NextLevel is exhausted, ascend via LastLevel
// until a RightNode sibling exists; terminate when ascent reaches
// InvalidNode. visit is called once per node in that order. Neither Enter
// nor the bsave package calls Walk.
func (n *Network) Walk(start NodeID, visit func(NodeID)) {
	cur := start
	for cur != InvalidNode {
		visit(cur)

		if n.nodes[cur].NextLevel != InvalidNode {
			cur = n.nodes[cur].NextLevel
			continue
		}

		// Ascend until we find a right sibling, or exhaust the walk.
		// Ascent never rises above start, so a walk rooted below the
		// true network root stays confined to its own subtree; a walk
		// rooted at the network root naturally stops there too, since
		// the root has no LastLevel.
		for cur != InvalidNode && cur != start && n.nodes[cur].RightNode == InvalidNode {
			cur = n.nodes[cur].LastLevel
		}
		if cur == InvalidNode || cur == start {
			return
		}
		cur = n.nodes[cur].RightNode
	}
}
