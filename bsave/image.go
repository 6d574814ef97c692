package bsave

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/coregx/rete/alpha"
	"github.com/coregx/rete/beta"
)

// JoinExprTags supplies the opaque expression/action tags a caller's own
// expression table assigns a join, since this package never looks inside
// them (see package doc).
type JoinExprTags struct {
	NetworkTest             uint32
	SecondaryNetworkTest    uint32
	GoalExpression          uint32
	LeftHash                uint32
	RightHash               uint32
	RightSideEntryStructure uint32
	RuleToActivate          uint32
}

func packJoinFlags(jn *beta.JoinNode) uint16 {
	var f uint16
	if jn.FirstJoin {
		f |= FlagFirstJoin
	}
	if jn.LogicalJoin {
		f |= FlagLogicalJoin
	}
	if jn.GoalJoin {
		f |= FlagGoalJoin
	}
	if jn.ExplicitJoin {
		f |= FlagExplicitJoin
	}
	if jn.JoinFromTheRight {
		f |= FlagJoinFromTheRight
	}
	if jn.PatternIsNegated {
		f |= FlagPatternIsNegated
	}
	if jn.PatternIsExists {
		f |= FlagPatternIsExists
	}
	return f
}

func joinIndexOrNull(id beta.JoinID) uint32 {
	if id == beta.InvalidJoin {
		return NullIndex
	}
	return uint32(id)
}

func joinIDFromIndex(idx uint32) beta.JoinID {
	if idx == NullIndex {
		return beta.InvalidJoin
	}
	return beta.JoinID(idx)
}

// ToJoinRecord captures the structural fields of join id into a
// JoinNodeRecord, with tags standing in for its expression-valued fields.
// NextLinks is left NullIndex here; call BuildLinks separately and assign
// the returned head index.
func ToJoinRecord(net *beta.Network, id beta.JoinID, tags JoinExprTags) JoinNodeRecord {
	jn := net.Join(id)
	return JoinNodeRecord{
		Flags:                   packJoinFlags(jn),
		Depth:                   uint16(jn.Depth),
		NetworkTest:             tags.NetworkTest,
		SecondaryNetworkTest:    tags.SecondaryNetworkTest,
		GoalExpression:          tags.GoalExpression,
		LeftHash:                tags.LeftHash,
		RightHash:               tags.RightHash,
		RightSideEntryStructure: tags.RightSideEntryStructure,
		NextLinks:               NullIndex,
		LastLevel:               joinIndexOrNull(jn.LastLevel),
		RightMatchNode:          joinIndexOrNull(jn.RightMatchNode),
		RuleToActivate:          tags.RuleToActivate,
	}
}

// ApplyJoinRecord writes rec's structural fields back onto jn. Expression-
// valued fields (NetworkTest, SecondaryNetworkTest, GoalExpression,
// LeftHash, RightHash, RightSideEntryStructure, RuleToActivate) are left to
// the caller, which must resolve the record's tags through its own
// expression table and assign the live closures/values itself.
func ApplyJoinRecord(jn *beta.JoinNode, rec JoinNodeRecord, links []beta.Link) {
	jn.FirstJoin = rec.Flags&FlagFirstJoin != 0
	jn.LogicalJoin = rec.Flags&FlagLogicalJoin != 0
	jn.GoalJoin = rec.Flags&FlagGoalJoin != 0
	jn.ExplicitJoin = rec.Flags&FlagExplicitJoin != 0
	jn.JoinFromTheRight = rec.Flags&FlagJoinFromTheRight != 0
	jn.PatternIsNegated = rec.Flags&FlagPatternIsNegated != 0
	jn.PatternIsExists = rec.Flags&FlagPatternIsExists != 0
	jn.Depth = int(rec.Depth)
	jn.LastLevel = joinIDFromIndex(rec.LastLevel)
	jn.RightMatchNode = joinIDFromIndex(rec.RightMatchNode)
	jn.NextLinks = links
}

// BuildLinks flattens every join's NextLinks slice into one
// []JoinLinkRecord, threaded per join via Next exactly as the original's
// joinLink linked list is, and returns the head index each join's
// JoinNodeRecord.NextLinks should carry (NullIndex if the join has none).
func BuildLinks(net *beta.Network, numJoins int) ([]JoinLinkRecord, []uint32) {
	var records []JoinLinkRecord
	heads := make([]uint32, numJoins)

	for i := 0; i < numJoins; i++ {
		jn := net.Join(beta.JoinID(i))
		head := NullIndex
		for j := len(jn.NextLinks) - 1; j >= 0; j-- {
			link := jn.NextLinks[j]
			dir := uint8(DirLeft)
			if link.Direction == beta.Right {
				dir = uint8(DirRight)
			}
			records = append(records, JoinLinkRecord{
				EnterDirection: dir,
				Join:           uint32(link.Join),
				Next:           head,
			})
			head = uint32(len(records) - 1)
		}
		heads[i] = head
	}
	return records, heads
}

// RebuildLinks walks records starting at head, following Next until
// NullIndex, reconstructing the []beta.Link slice ApplyJoinRecord expects.
func RebuildLinks(records []JoinLinkRecord, head uint32) []beta.Link {
	var links []beta.Link
	for idx := head; idx != NullIndex; idx = records[idx].Next {
		rec := records[idx]
		dir := beta.Left
		if rec.EnterDirection == uint8(DirRight) {
			dir = beta.Right
		}
		links = append(links, beta.Link{Direction: dir, Join: beta.JoinID(rec.Join)})
	}
	return links
}

func nodeIndexOrNull(id alpha.NodeID) uint32 {
	if id == alpha.InvalidNode {
		return NullIndex
	}
	return uint32(id)
}

func nodeIDFromIndex(idx uint32) alpha.NodeID {
	if idx == NullIndex {
		return alpha.InvalidNode
	}
	return alpha.NodeID(idx)
}

func packPatternFlags(pn *alpha.PatternNode) uint16 {
	var f uint16
	if pn.SingleField {
		f |= FlagSingleField
	}
	if pn.Multifield {
		f |= FlagMultifield
	}
	if pn.Stop {
		f |= FlagStop
	}
	if pn.BeginSlot {
		f |= FlagBeginSlot
	}
	if pn.EndSlot {
		f |= FlagEndSlot
	}
	if pn.Selector {
		f |= FlagSelector
	}
	return f
}

// ToPatternRecord captures the structural fields of node id, using
// networkTestTag/entryJoinTag/rightHashTag as the caller-resolved
// expression tags and whichSlot/whichField/leaveFields as caller-supplied
// slot metadata this port's generic PatternNode does not itself carry.
func ToPatternRecord(
	n *alpha.Network, id alpha.NodeID,
	networkTestTag, entryJoinTag, rightHashTag uint32,
	whichSlot, whichField, leaveFields uint16,
) FactPatternNodeRecord {
	pn := n.Node(id)
	return FactPatternNodeRecord{
		Header: PatternNodeHeaderRecord{
			EntryJoin: entryJoinTag,
			RightHash: rightHashTag,
			Flags:     packPatternFlags(pn),
		},
		WhichSlot:   whichSlot,
		WhichField:  whichField,
		LeaveFields: leaveFields,
		NetworkTest: networkTestTag,
		NextLevel:   nodeIndexOrNull(pn.NextLevel),
		LastLevel:   nodeIndexOrNull(pn.LastLevel),
		LeftNode:    nodeIndexOrNull(pn.LeftNode),
		RightNode:   nodeIndexOrNull(pn.RightNode),
		ModifySlots: NullIndex,
	}
}

// ApplyPatternRecord writes rec's structural fields back onto pn.
// NetworkTest/SelectorKey/dispatch are left to the caller, exactly as
// ApplyJoinRecord leaves a join's expression fields.
func ApplyPatternRecord(pn *alpha.PatternNode, rec FactPatternNodeRecord) {
	pn.SingleField = rec.Header.Flags&FlagSingleField != 0
	pn.Multifield = rec.Header.Flags&FlagMultifield != 0
	pn.Stop = rec.Header.Flags&FlagStop != 0
	pn.BeginSlot = rec.Header.Flags&FlagBeginSlot != 0
	pn.EndSlot = rec.Header.Flags&FlagEndSlot != 0
	pn.Selector = rec.Header.Flags&FlagSelector != 0
	pn.NextLevel = nodeIDFromIndex(rec.NextLevel)
	pn.LastLevel = nodeIDFromIndex(rec.LastLevel)
	pn.LeftNode = nodeIDFromIndex(rec.LeftNode)
	pn.RightNode = nodeIDFromIndex(rec.RightNode)
}

// Image is the full set of records one bsave/bload round trip carries.
type Image struct {
	Header   ImageHeader
	Defrules []DefruleRecord
	Joins    []JoinNodeRecord
	Links    []JoinLinkRecord
	Patterns []FactPatternNodeRecord
}

// WriteImage writes img's header followed by its defrule, join, link and
// pattern records, each as a flat binary.Write of the record slice (spec
// §6.2: fixed-width records, encoding/binary over explicit struct
// layouts).
func WriteImage(w io.Writer, img Image) error {
	if err := binary.Write(w, binary.LittleEndian, img.Header); err != nil {
		return errors.Wrap(err, "unable to write image header")
	}
	if err := binary.Write(w, binary.LittleEndian, img.Defrules); err != nil {
		return errors.Wrap(err, "unable to write defrule records")
	}
	if err := binary.Write(w, binary.LittleEndian, img.Joins); err != nil {
		return errors.Wrap(err, "unable to write join records")
	}
	if err := binary.Write(w, binary.LittleEndian, img.Links); err != nil {
		return errors.Wrap(err, "unable to write join link records")
	}
	if err := binary.Write(w, binary.LittleEndian, img.Patterns); err != nil {
		return errors.Wrap(err, "unable to write pattern node records")
	}
	return nil
}

// ReadImage reads back what WriteImage wrote, sizing each slice from the
// counts in the leading ImageHeader.
func ReadImage(r io.Reader) (Image, error) {
	var header ImageHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Image{}, errors.Wrap(err, "unable to read image header")
	}

	defrules := make([]DefruleRecord, header.NumberOfDefrules)
	if err := binary.Read(r, binary.LittleEndian, defrules); err != nil {
		return Image{}, errors.Wrap(err, "unable to read defrule records")
	}

	joins := make([]JoinNodeRecord, header.NumberOfJoins)
	if err := binary.Read(r, binary.LittleEndian, joins); err != nil {
		return Image{}, errors.Wrap(err, "unable to read join records")
	}

	links := make([]JoinLinkRecord, header.NumberOfLinks)
	if err := binary.Read(r, binary.LittleEndian, links); err != nil {
		return Image{}, errors.Wrap(err, "unable to read join link records")
	}

	patterns := make([]FactPatternNodeRecord, header.NumberOfPatterns)
	if err := binary.Read(r, binary.LittleEndian, patterns); err != nil {
		return Image{}, errors.Wrap(err, "unable to read pattern node records")
	}

	return Image{Header: header, Defrules: defrules, Joins: joins, Links: links, Patterns: patterns}, nil
}
