package match

import (
	"testing"

	"github.com/coregx/rete/entity"
)

func TestNewPartialMatchBindsLength(t *testing.T) {
	s := NewStore()
	id := s.NewPartialMatch(3)
	pm := s.Get(id)
	if len(pm.Binds) != 3 {
		t.Fatalf("len(Binds) = %d, want 3", len(pm.Binds))
	}
	for i, b := range pm.Binds {
		if b.Alpha != InvalidAMID {
			t.Fatalf("bind %d: Alpha = %v, want InvalidAMID", i, b.Alpha)
		}
	}
	if pm.NextInMemory != InvalidPMID || pm.BlockList != InvalidPMID {
		t.Fatal("freshly allocated match should have all links reset to invalid")
	}
}

func TestFreeAndReusePartialMatch(t *testing.T) {
	s := NewStore()
	id1 := s.NewPartialMatch(2)
	s.Get(id1).Marker = "activation-1"
	s.FreePartialMatch(id1)

	if s.AlivePartialMatches() != 0 {
		t.Fatalf("AlivePartialMatches() = %d, want 0 after free", s.AlivePartialMatches())
	}

	id2 := s.NewPartialMatch(2)
	if id2 != id1 {
		t.Fatalf("expected bcount-bucketed reuse to hand back id %v, got %v", id1, id2)
	}
	if s.Get(id2).Marker != nil {
		t.Fatal("reused match should have Marker cleared")
	}
}

func TestAlphaMatchLifecycle(t *testing.T) {
	s := NewStore()
	e := entity.Entity{Ref: "fact-1"}
	id := s.NewAlphaMatch(e, nil, 42)
	am := s.GetAlpha(id)
	if am.Bucket != 42 || am.Entity.Ref != "fact-1" {
		t.Fatalf("unexpected alpha match contents: %+v", am)
	}
	if s.AliveAlphaMatches() != 1 {
		t.Fatalf("AliveAlphaMatches() = %d, want 1", s.AliveAlphaMatches())
	}
	s.FreeAlphaMatch(id)
	if s.AliveAlphaMatches() != 0 {
		t.Fatalf("AliveAlphaMatches() = %d, want 0 after free", s.AliveAlphaMatches())
	}
}

func TestDistinctBCountsDoNotShareFreeList(t *testing.T) {
	s := NewStore()
	id2 := s.NewPartialMatch(2)
	s.FreePartialMatch(id2)

	id3 := s.NewPartialMatch(3)
	if id3 == id2 {
		t.Fatal("a bcount=3 allocation must not reuse a freed bcount=2 slot")
	}
}
