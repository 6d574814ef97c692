package alpha

import (
	"testing"

	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/match"
)

type namedFact struct {
	name string
}

func nameSlot(_ any, e entity.Entity) []byte {
	return []byte(e.Ref.(*namedFact).name)
}

func TestSlotEqualTestMatchesOnByteEquality(t *testing.T) {
	test := SlotEqualTest(nameSlot, []byte("widget"))

	ok, err := test(nil, entity.Entity{Ref: &namedFact{name: "widget"}})
	if err != nil || !ok {
		t.Fatalf("test(widget) = %v, %v, want true, nil", ok, err)
	}

	ok, err = test(nil, entity.Entity{Ref: &namedFact{name: "gadget"}})
	if err != nil || ok {
		t.Fatalf("test(gadget) = %v, %v, want false, nil", ok, err)
	}
}

func TestSlotHashIsStableAndDiscriminating(t *testing.T) {
	hash := SlotHash(nameSlot)

	a := hash(nil, entity.Entity{Ref: &namedFact{name: "widget"}})
	b := hash(nil, entity.Entity{Ref: &namedFact{name: "widget"}})
	c := hash(nil, entity.Entity{Ref: &namedFact{name: "gadget"}})

	if a != b {
		t.Fatalf("hash not stable across calls: %d != %d", a, b)
	}
	if a == c {
		t.Fatalf("hash collided for distinct slot values: %d", a)
	}
}

func TestSlotSelectorKeyRoutesBySlotBytes(t *testing.T) {
	net := NewNetwork()
	a := net.AddChild(net.Root(), SlotEqualTest(nameSlot, []byte("widget")))
	b := net.AddChild(net.Root(), SlotEqualTest(nameSlot, []byte("gadget")))
	net.Node(net.Root()).SelectorKey = SlotSelectorKey(nameSlot)

	if err := net.BuildSelectorDispatch(net.Root(), []NodeID{a, b}, func(id NodeID) []byte {
		if id == a {
			return []byte("widget")
		}
		return []byte("gadget")
	}); err != nil {
		t.Fatalf("BuildSelectorDispatch: %v", err)
	}

	amA := net.NewAlphaMemory(a, nil, nil)
	amB := net.NewAlphaMemory(b, nil, nil)

	store := match.NewStore()
	records, err := net.Enter(store, nil, entity.Entity{Ref: &namedFact{name: "gadget"}})
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if len(records) != 1 || records[0].AlphaMemory != amB {
		t.Fatalf("records = %+v, want exactly one record in memory %v (amA=%v)", records, amB, amA)
	}
}
