package gc

import (
	"testing"

	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/match"
)

func TestReturnPartialMatchFreesWhenNotBusy(t *testing.T) {
	store := match.NewStore()
	l := New(store)

	id := store.NewPartialMatch(1)
	store.Get(id).Binds[0].Alpha = store.NewAlphaMatch(entity.Entity{Ref: "x"}, nil, 0)
	store.Get(id).BetaMemory = false

	l.ReturnPartialMatch(id)

	if store.AlivePartialMatches() != 0 {
		t.Fatalf("AlivePartialMatches() = %d, want 0", store.AlivePartialMatches())
	}
	if store.AliveAlphaMatches() != 0 {
		t.Fatalf("AliveAlphaMatches() = %d, want 0", store.AliveAlphaMatches())
	}
}

func TestReturnPartialMatchDefersWhenBusy(t *testing.T) {
	store := match.NewStore()
	l := New(store)

	id := store.NewPartialMatch(1)
	store.Get(id).BetaMemory = true
	store.Get(id).Busy = true

	l.ReturnPartialMatch(id)

	if store.AlivePartialMatches() != 1 {
		t.Fatal("busy match should not be freed immediately")
	}
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", l.Pending())
	}

	l.Flush()
	if store.AlivePartialMatches() != 0 {
		t.Fatal("Flush should free the deferred match")
	}
	if l.Pending() != 0 {
		t.Fatal("garbage list should be empty after Flush")
	}
}

func TestFlushFreesAllQueued(t *testing.T) {
	store := match.NewStore()
	l := New(store)

	ids := make([]match.PMID, 3)
	for i := range ids {
		id := store.NewPartialMatch(1)
		store.Get(id).BetaMemory = true
		store.Get(id).Busy = true
		ids[i] = id
		l.ReturnPartialMatch(id)
	}

	if l.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", l.Pending())
	}
	l.Flush()
	if store.AlivePartialMatches() != 0 {
		t.Fatal("all queued matches should be freed")
	}
}

func TestDestroyPartialMatchSkipsBusyCheck(t *testing.T) {
	store := match.NewStore()
	l := New(store)

	id := store.NewPartialMatch(1)
	store.Get(id).BetaMemory = true
	store.Get(id).Busy = true

	l.DestroyPartialMatch(id)
	if store.AlivePartialMatches() != 0 {
		t.Fatal("DestroyPartialMatch should free immediately regardless of Busy")
	}
}
