// Package bsave implements the binary image format for the network's
// structural records: join nodes, join links, and discrimination-network
// pattern node headers (spec §6.2). It round-trips the same fixed-width
// fields the original engine's rulebin.c/factbin.c bsave records carry —
// flags packed into a bitmask, ULONG_MAX-as-NULL index encoding — so a
// saved image is byte-stable across runs of the same binary.
//
// What it deliberately does not do: serialize the join tests, hash
// functions, or rule actions themselves. Those are Go closures compiled by
// an external rule-text-to-network compiler, which spec §1's Non-goals
// place out of scope here; bsave only carries the opaque uint32 tag the
// caller's own expression table assigns each one; re-attaching the live
// closures after ReadImage is that caller's job, exactly as the original
// engine's bload re-wires expression pointers from its own separately
// bloaded expression pool (not present in this port's retrieval pack
// either — see DESIGN.md).
package bsave

// NullIndex is this port's ULONG_MAX: the sentinel a uint32 index field
// carries in place of a NULL/absent pointer.
const NullIndex uint32 = 0xFFFFFFFF

// Direction mirrors bsaveJoinLink's enterDirection byte: 0 for the left
// input, 1 for the right.
type Direction uint8

const (
	DirLeft Direction = iota
	DirRight
)

// PatternNodeHeaderFlags bit positions, mirroring struct
// bsavePatternNodeHeader's bitfields in declaration order.
const (
	FlagSingleField uint16 = 1 << iota
	FlagMultifield
	FlagStop
	FlagBlocked
	FlagInitialize
	FlagMarked
	FlagBeginSlot
	FlagEndSlot
	FlagSelector
)

// PatternNodeHeaderRecord is the bsave analogue of bsavePatternNodeHeader.
type PatternNodeHeaderRecord struct {
	EntryJoin uint32
	RightHash uint32
	Flags     uint16
}

// FactPatternNodeRecord is the bsave analogue of bsaveFactPatternNode
// (original_source/src/factbin.c), adapted to alpha.PatternNode: NextLevel/
// LastLevel/LeftNode/RightNode are this network's own NodeID arena indices
// rather than a separate per-template array. ModifySlots is always
// written as NullIndex: a node's ModifySlots is not saved.
type FactPatternNodeRecord struct {
	Header      PatternNodeHeaderRecord
	WhichSlot   uint16
	WhichField  uint16
	LeaveFields uint16
	NetworkTest uint32
	NextLevel   uint32
	LastLevel   uint32
	LeftNode    uint32
	RightNode   uint32
	ModifySlots uint32
}

// Join node flag bits, mirroring struct joinNode's bitfields (network.h)
// in declaration order.
const (
	FlagFirstJoin uint16 = 1 << iota
	FlagLogicalJoin
	FlagGoalJoin
	FlagExplicitJoin
	FlagJoinFromTheRight
	FlagPatternIsNegated
	FlagPatternIsExists
)

// JoinNodeRecord is the bsave analogue of bsaveJoinNode. NetworkTest,
// SecondaryNetworkTest, GoalExpression, LeftHash, RightHash and
// RightSideEntryStructure are opaque caller-assigned tags (see package
// doc); NextLinks is the head index into a parallel []JoinLinkRecord
// array, not a direct pointer.
type JoinNodeRecord struct {
	Flags                   uint16
	Depth                   uint16
	NetworkTest             uint32
	SecondaryNetworkTest    uint32
	GoalExpression          uint32
	LeftHash                uint32
	RightHash               uint32
	RightSideEntryStructure uint32
	NextLinks               uint32
	LastLevel               uint32
	RightMatchNode          uint32
	RuleToActivate          uint32
}

// JoinLinkRecord is the bsave analogue of bsaveJoinLink: one link in a
// join's NextLinks chain, threaded via Next rather than stored as a slice,
// to keep the on-disk shape identical to the original's linked list of
// joinLink records.
type JoinLinkRecord struct {
	EnterDirection uint8
	Join           uint32
	Next           uint32
}

// DefruleRecord is the bsave analogue of bsaveDefrule, without the
// construct-system header (module membership, name hashing) and the
// action-expression index, which belong to a defrule compiler this repo
// does not implement (spec §1 Non-goals). No package besides bsave reads
// it.
type DefruleRecord struct {
	Salience        int32
	LocalVarCnt     uint16
	Complexity      uint16
	AutoFocus       uint8
	Certainty       int16
	DynamicSalience uint32
	LogicalJoin     uint32
	LastJoin        uint32
	Disjunct        uint32
}

// ImageHeader is the bsave analogue of defruleBinaryData's count fields:
// written first so ReadImage knows how many of each record type follow.
type ImageHeader struct {
	NumberOfDefrules uint32
	NumberOfJoins    uint32
	NumberOfLinks    uint32
	NumberOfPatterns uint32
	RightPrimeIndex  uint32
	LeftPrimeIndex   uint32
	GoalPrimeIndex   uint32
}
