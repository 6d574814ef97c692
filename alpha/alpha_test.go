package alpha

import (
	"testing"

	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/match"
)

type fact struct {
	kind  string
	value int
}

func kindTest(want string) Test {
	return func(_ any, e entity.Entity) (bool, error) {
		f := e.Ref.(*fact)
		return f.kind == want, nil
	}
}

func TestEnterSingleTerminal(t *testing.T) {
	net := NewNetwork()
	child := net.AddChild(net.Root(), kindTest("a"))
	amID := net.NewAlphaMemory(child, nil, nil)

	store := match.NewStore()
	e := entity.Entity{Ref: &fact{kind: "a", value: 1}}

	records, err := net.Enter(store, nil, e)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if len(records) != 1 || records[0].AlphaMemory != amID {
		t.Fatalf("records = %+v, want one record in memory %v", records, amID)
	}

	pm := store.Get(records[0].Match)
	if pm.OwnerKind != match.OwnerAlphaMemory || match.AMID(pm.OwnerID) != 0 {
		t.Fatalf("unexpected owner on inserted match: %+v", pm)
	}
	am := store.GetAlpha(pm.Binds[0].Alpha)
	if am.Entity.Ref.(*fact).value != 1 {
		t.Fatalf("alpha match entity mismatch: %+v", am)
	}
}

func TestEnterNonMatchingEntityProducesNoRecords(t *testing.T) {
	net := NewNetwork()
	child := net.AddChild(net.Root(), kindTest("a"))
	net.NewAlphaMemory(child, nil, nil)

	store := match.NewStore()
	e := entity.Entity{Ref: &fact{kind: "b", value: 1}}

	records, err := net.Enter(store, nil, e)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want none for non-matching entity", records)
	}
}

func TestEnterSharedPrefixFansOutToBothTerminals(t *testing.T) {
	net := NewNetwork()
	a := net.AddChild(net.Root(), kindTest("a"))
	amA := net.NewAlphaMemory(a, nil, nil)

	// Two independent rules both test kind=="a"; the teacher's style for
	// shared structure is a second child off the same parent rather than
	// reusing 'a' itself, since distinct rules may add further tests below.
	a2 := net.AddChild(net.Root(), kindTest("a"))
	amA2 := net.NewAlphaMemory(a2, nil, nil)

	store := match.NewStore()
	e := entity.Entity{Ref: &fact{kind: "a", value: 7}}
	records, err := net.Enter(store, nil, e)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2 (one per terminal)", records)
	}
	seen := map[AMemID]bool{}
	for _, r := range records {
		seen[r.AlphaMemory] = true
	}
	if !seen[amA] || !seen[amA2] {
		t.Fatalf("expected both %v and %v to receive a match, got %+v", amA, amA2, records)
	}
}

func TestBucketHashing(t *testing.T) {
	net := NewNetwork()
	child := net.AddChild(net.Root(), nil)
	hash := func(_ any, e entity.Entity) uint64 {
		return uint64(e.Ref.(*fact).value % 4)
	}
	amID := net.NewAlphaMemory(child, hash, nil)

	store := match.NewStore()
	var inBucket2 []match.PMID
	for _, v := range []int{2, 6, 10, 3} {
		e := entity.Entity{Ref: &fact{kind: "x", value: v}}
		records, err := net.Enter(store, nil, e)
		if err != nil {
			t.Fatal(err)
		}
		if v%4 == 2 {
			inBucket2 = append(inBucket2, records[0].Match)
		}
	}

	var got []match.PMID
	net.Bucket(store, amID, 2, func(id match.PMID) bool {
		got = append(got, id)
		return true
	})
	if len(got) != len(inBucket2) {
		t.Fatalf("Bucket(2) returned %d matches, want %d", len(got), len(inBucket2))
	}
}

func TestRemoveMatchUnlinksFromBucket(t *testing.T) {
	net := NewNetwork()
	child := net.AddChild(net.Root(), nil)
	amID := net.NewAlphaMemory(child, nil, nil)

	store := match.NewStore()
	e1 := entity.Entity{Ref: &fact{kind: "x", value: 1}}
	e2 := entity.Entity{Ref: &fact{kind: "x", value: 2}}
	r1, _ := net.Enter(store, nil, e1)
	r2, _ := net.Enter(store, nil, e2)

	net.RemoveMatch(store, amID, r1[0].Match)

	var remaining []match.PMID
	net.Bucket(store, amID, 0, func(id match.PMID) bool {
		remaining = append(remaining, id)
		return true
	})
	if len(remaining) != 1 || remaining[0] != r2[0].Match {
		t.Fatalf("remaining = %+v, want only %v", remaining, r2[0].Match)
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	net := NewNetwork()
	c1 := net.AddChild(net.Root(), nil)
	c2 := net.AddChild(net.Root(), nil)
	net.AddChild(c1, nil)
	net.AddChild(c2, nil)

	var visited []NodeID
	net.Walk(net.Root(), func(id NodeID) {
		visited = append(visited, id)
	})
	if len(visited) != 5 { // root + c1 + c2 + their two children
		t.Fatalf("Walk visited %d nodes, want 5: %+v", len(visited), visited)
	}
}
