package alpha

import (
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/internal/fastscan"
)

// SlotFunc extracts a slot's raw bytes from an entity, for the common case
// of a symbol or string slot value (spec §4.1, §4.7 domain stack).
type SlotFunc func(ctx any, e entity.Entity) []byte

// SlotEqualTest builds a Test comparing a slot's bytes against a compiled
// constant restriction, using fastscan.Equal rather than bytes.Equal so the
// same SWAR-accelerated comparison path serves both the discrimination
// network and the beta network's join tests.
func SlotEqualTest(slot SlotFunc, want []byte) Test {
	return func(ctx any, e entity.Entity) (bool, error) {
		return fastscan.Equal(slot(ctx, e), want), nil
	}
}

// SlotHash builds a HashFunc bucketing an alpha memory by a slot's raw
// bytes, for use as a node's rightHash expression when the discriminating
// field is a symbol or string slot rather than a numeric one.
func SlotHash(slot SlotFunc) HashFunc {
	return func(ctx any, e entity.Entity) uint64 {
		return fastscan.Hash64(slot(ctx, e))
	}
}

// SlotSelectorKey adapts a SlotFunc into a SelectorKeyFunc, used when a
// selector node's dispatch key is itself a slot's raw bytes (spec §4.1
// "selector node").
func SlotSelectorKey(slot SlotFunc) SelectorKeyFunc {
	return func(ctx any, e entity.Entity) ([]byte, bool) {
		b := slot(ctx, e)
		if b == nil {
			return nil, false
		}
		return b, true
	}
}
