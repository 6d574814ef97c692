// Package beta implements the join (beta) network (spec §3 Join Node,
// Beta Memory; §4.2 component C3): left/right hashed memories per join
// node, join-test evaluation, and the blocking-link bookkeeping negated
// and exists joins need.
//
// As with package alpha, node identity is a stable arena index (JoinID)
// and every operation is driven through a caller-supplied *match.Store;
// a Network holds only the join arena itself.
package beta

import "github.com/coregx/rete/match"

// JoinID identifies a join node in a Network's arena.
type JoinID uint32

// InvalidJoin marks the absence of a join reference.
const InvalidJoin JoinID = 0xFFFFFFFF

// Direction tags a Link as entering a join's left or right memory (spec §3
// Join Link).
type Direction uint8

const (
	Left Direction = iota
	Right
)

// Link is a downward edge from a beta memory into the next join, tagged
// with which side of that join it feeds.
type Link struct {
	Direction Direction
	Join      JoinID
}

// JoinTest evaluates a join's networkTest or secondaryNetworkTest against a
// candidate (left, right) pair. Either side is nil when the caller passes
// match.InvalidPMID for it: the retract pathway evaluates a newly
// unblocked left match's secondary test against a nil right. A first
// join's synthetic empty left is a zero-bind partial match, not nil. The
// core treats this as a pure
// predicate (spec §1 "the expression evaluator... is a pure predicate over
// a (LHS-bindings, RHS-binding) pair").
type JoinTest func(ctx any, left, right *match.PartialMatch) (bool, error)

// HashFunc computes the bucket a partial match hashes to for a join's
// leftHash or rightHash expression.
type HashFunc func(ctx any, pm *match.PartialMatch) uint64

// JoinNode is one node of the beta network (spec §3 Join Node).
type JoinNode struct {
	ID JoinID

	FirstJoin        bool // left input is the root "left prime", not an upstream beta memory
	PatternIsNegated bool
	PatternIsExists  bool
	JoinFromTheRight bool
	LogicalJoin      bool
	GoalJoin         bool
	ExplicitJoin     bool

	LeftMemory  BetaMemory
	RightMemory BetaMemory

	NetworkTest          JoinTest
	SecondaryNetworkTest JoinTest

	LeftHash  HashFunc
	RightHash HashFunc

	LastLevel      JoinID // parent join
	NextLinks      []Link // children, each tagged LHS/RHS
	RightMatchNode JoinID // sibling chain sharing this join's right input

	// RuleToActivate is opaque to the network: a leaf join carries whatever
	// the engine's rule-instantiation type is. Non-nil only at leaves.
	RuleToActivate any

	// Depth is j.depth from invariant I1: a partial match owned by this
	// join must have exactly Depth+1 bind cells.
	Depth int
}

// Option configures a JoinNode at construction time.
type Option func(*JoinNode)

func WithFirstJoin() Option             { return func(j *JoinNode) { j.FirstJoin = true } }
func WithNegated() Option              { return func(j *JoinNode) { j.PatternIsNegated = true } }
func WithExists() Option               { return func(j *JoinNode) { j.PatternIsExists = true } }
func WithFromTheRight() Option         { return func(j *JoinNode) { j.JoinFromTheRight = true } }
func WithLogical() Option              { return func(j *JoinNode) { j.LogicalJoin = true } }
func WithGoal() Option                 { return func(j *JoinNode) { j.GoalJoin = true } }
func WithExplicit() Option             { return func(j *JoinNode) { j.ExplicitJoin = true } }
func WithDepth(d int) Option           { return func(j *JoinNode) { j.Depth = d } }
func WithRuleToActivate(r any) Option  { return func(j *JoinNode) { j.RuleToActivate = r } }
func WithLastLevel(id JoinID) Option   { return func(j *JoinNode) { j.LastLevel = id } }

func WithNetworkTest(t JoinTest) Option {
	return func(j *JoinNode) { j.NetworkTest = t }
}

func WithSecondaryTest(t JoinTest) Option {
	return func(j *JoinNode) { j.SecondaryNetworkTest = t }
}

func WithLeftHash(h HashFunc) Option {
	return func(j *JoinNode) { j.LeftHash = h }
}

func WithRightHash(h HashFunc) Option {
	return func(j *JoinNode) { j.RightHash = h }
}

// Network is the arena of join nodes making up the beta network.
type Network struct {
	joins []JoinNode

	initialHashSize int
	loadFactor      int
}

// NetworkOption configures a Network's beta-memory sizing at construction
// time (spec §4.2 "INITIAL_BETA_HASH_SIZE = 17 growing to the next size
// needed"; tunable per engine.Config).
type NetworkOption func(*Network)

// WithInitialHashSize overrides the starting bucket count for every join's
// left and right memory. Non-positive values are ignored.
func WithInitialHashSize(n int) NetworkOption {
	return func(net *Network) { net.initialHashSize = n }
}

// WithLoadFactor overrides the entries-per-bucket average that triggers a
// beta memory grow. Non-positive values are ignored.
func WithLoadFactor(n int) NetworkOption {
	return func(net *Network) { net.loadFactor = n }
}

// NewNetwork creates an empty beta network, applying opts.
func NewNetwork(opts ...NetworkOption) *Network {
	n := &Network{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewJoin appends a new join node, applying opts, and returns its id.
func (n *Network) NewJoin(opts ...Option) JoinID {
	id := JoinID(len(n.joins))
	j := JoinNode{
		ID:             id,
		LastLevel:      InvalidJoin,
		RightMatchNode: InvalidJoin,
		LeftMemory:     newBetaMemory(n.initialHashSize, n.loadFactor),
		RightMemory:    newBetaMemory(n.initialHashSize, n.loadFactor),
	}
	for _, opt := range opts {
		opt(&j)
	}
	n.joins = append(n.joins, j)
	return id
}

// Join returns a pointer to the join node for id.
func (n *Network) Join(id JoinID) *JoinNode { return &n.joins[id] }

// AddLink records a downward edge from join parent into join child,
// tagged with the side of child that it feeds.
func (n *Network) AddLink(parent JoinID, dir Direction, child JoinID) {
	jn := &n.joins[parent]
	jn.NextLinks = append(jn.NextLinks, Link{Direction: dir, Join: child})
}

// HashLeft computes join j's leftHash for pm, or 0 if the join has no
// left-hash expression (spec §4.2 "or all, if no hash").
func (n *Network) HashLeft(ctx any, j JoinID, pm *match.PartialMatch) uint64 {
	jn := &n.joins[j]
	if jn.LeftHash == nil {
		return 0
	}
	return jn.LeftHash(ctx, pm)
}

// HashRight computes join j's rightHash for pm, or 0 if absent.
func (n *Network) HashRight(ctx any, j JoinID, pm *match.PartialMatch) uint64 {
	jn := &n.joins[j]
	if jn.RightHash == nil {
		return 0
	}
	return jn.RightHash(ctx, pm)
}

// Hashed reports whether join j buckets its memories by a hash expression
// rather than scanning every entry on each assert.
func (n *Network) Hashed(j JoinID) bool {
	jn := &n.joins[j]
	return jn.LeftHash != nil && jn.RightHash != nil
}

// Test evaluates join j's primary networkTest against a candidate pair.
// Either id may be match.InvalidPMID.
func (n *Network) Test(store *match.Store, ctx any, j JoinID, left, right match.PMID) (bool, error) {
	jn := &n.joins[j]
	if jn.NetworkTest == nil {
		return true, nil
	}
	return jn.NetworkTest(ctx, pmOrNil(store, left), pmOrNil(store, right))
}

// SecondaryTest evaluates join j's secondaryNetworkTest, if any (spec §4.2
// "Re-evaluation of secondaryNetworkTest... must succeed in addition to
// networkTest for negated/right-entry joins before a positive result is
// produced"). Reports true when no secondary test is configured.
func (n *Network) SecondaryTest(store *match.Store, ctx any, j JoinID, left, right match.PMID) (bool, error) {
	jn := &n.joins[j]
	if jn.SecondaryNetworkTest == nil {
		return true, nil
	}
	return jn.SecondaryNetworkTest(ctx, pmOrNil(store, left), pmOrNil(store, right))
}

// LeftPrime returns the bucket-0 head of join j's left memory — for a
// first join, its synthetic "empty" left input, inserted once at network
// construction rather than per assert (original_source/src/retract.c's
// lastJoin->leftMemory->beta[0]). InvalidPMID if the bucket is empty.
func (n *Network) LeftPrime(store *match.Store, j JoinID) match.PMID {
	var head match.PMID = match.InvalidPMID
	n.joins[j].LeftMemory.bucket(store, 0, func(pm match.PMID) bool {
		head = pm
		return false
	})
	return head
}

func pmOrNil(store *match.Store, id match.PMID) *match.PartialMatch {
	if id == match.InvalidPMID {
		return nil
	}
	return store.Get(id)
}

// InsertLeft inserts pm into join j's left memory, hashed under hash.
func (n *Network) InsertLeft(store *match.Store, j JoinID, pm match.PMID, hash uint64) {
	p := store.Get(pm)
	p.HashValue = hash
	p.OwnerKind = match.OwnerJoin
	p.OwnerID = uint32(j)
	p.RHSMemory = false
	n.joins[j].LeftMemory.insert(store, pm)
}

// InsertRight inserts pm into join j's right memory, hashed under hash.
func (n *Network) InsertRight(store *match.Store, j JoinID, pm match.PMID, hash uint64) {
	p := store.Get(pm)
	p.HashValue = hash
	p.OwnerKind = match.OwnerJoin
	p.OwnerID = uint32(j)
	p.RHSMemory = true
	n.joins[j].RightMemory.insert(store, pm)
}

// RemoveLeft unlinks pm from join j's left memory.
func (n *Network) RemoveLeft(store *match.Store, j JoinID, pm match.PMID) {
	n.joins[j].LeftMemory.remove(store, pm)
}

// RemoveRight unlinks pm from join j's right memory.
func (n *Network) RemoveRight(store *match.Store, j JoinID, pm match.PMID) {
	n.joins[j].RightMemory.remove(store, pm)
}

// ScanRight visits every candidate right-memory match for a left match
// entering join j, restricting to the matching hash bucket when the join
// hashes its memories (spec §4.2 "For each right-side match r whose hash
// matches leftHash(p) == rightHash(r)"). visit returning false stops the
// scan early.
func (n *Network) ScanRight(store *match.Store, ctx any, j JoinID, left match.PMID, visit func(right match.PMID) bool) {
	jn := &n.joins[j]
	if n.Hashed(j) {
		h := n.HashLeft(ctx, j, store.Get(left))
		jn.RightMemory.bucket(store, h, visit)
		return
	}
	jn.RightMemory.scanAll(store, visit)
}

// ScanLeft visits every candidate left-memory match for a right match
// entering join j, symmetric to ScanRight.
func (n *Network) ScanLeft(store *match.Store, ctx any, j JoinID, right match.PMID, visit func(left match.PMID) bool) {
	jn := &n.joins[j]
	if n.Hashed(j) {
		h := n.HashRight(ctx, j, store.Get(right))
		jn.LeftMemory.bucket(store, h, visit)
		return
	}
	jn.LeftMemory.scanAll(store, visit)
}

// ScanRightFrom resumes a right-memory bucket scan starting at start
// (typically the nextInMemory of the entry that just retracted), skipping
// skip if it is ever encountered. Used by FindNextConflictingMatch (spec
// §4.4.3), which must continue scanning after a specific entry rather than
// from the bucket head.
func (n *Network) ScanRightFrom(store *match.Store, j JoinID, start, skip match.PMID, visit func(right match.PMID) bool) {
	n.joins[j].RightMemory.bucketFrom(store, start, skip, visit)
}
