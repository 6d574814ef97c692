package beta

import (
	"github.com/coregx/rete/internal/fastscan"
	"github.com/coregx/rete/match"
)

// BindBytes extracts a bound symbol or string value as raw bytes from a
// partial match, for a join variable whose restriction is textual rather
// than numeric (spec §4.2, §4.7 domain stack).
type BindBytes func(pm *match.PartialMatch) []byte

// BytesHash builds a HashFunc bucketing a join's left or right memory by
// a bound value's raw bytes, using the same fastscan.Hash64 the alpha
// network's SlotHash uses so a bound symbol hashes identically whichever
// side of the network computed it.
func BytesHash(extract BindBytes) HashFunc {
	return func(ctx any, pm *match.PartialMatch) uint64 {
		return fastscan.Hash64(extract(pm))
	}
}

// BytesEqualTest builds a JoinTest comparing a bound textual value on
// each side of a join via fastscan.Equal, the common case of a join
// variable binding two patterns' slots to the same symbol.
func BytesEqualTest(left, right BindBytes) JoinTest {
	return func(ctx any, l, r *match.PartialMatch) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		return fastscan.Equal(left(l), right(r)), nil
	}
}
