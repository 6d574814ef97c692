package engine

import (
	"testing"

	"github.com/coregx/rete/agenda"
	"github.com/coregx/rete/alpha"
	"github.com/coregx/rete/beta"
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/match"
	"github.com/coregx/rete/retract"
)

type fakeScheduler struct {
	removed []any
}

func (f *fakeScheduler) RemoveActivation(_ any, act any, _, _ bool) {
	f.removed = append(f.removed, act)
}

func isPattern(name string) alpha.Test {
	return func(_ any, e entity.Entity) (bool, error) {
		return e.Ref.(string) == name, nil
	}
}

// buildTwoPatternEnv wires a two-join chain: join1 tests pattern "p1" alone
// (not a leaf), feeding join2's left input; join2 tests "p1" AND "p2"
// together and is the leaf that activates "rule-1". Pattern "p2"'s alpha
// matches feed join2's right input directly — the ordinary case where an
// alpha match is entered into a beta memory via AssertRight.
func buildTwoPatternEnv(t *testing.T) (*Environment, alpha.AMemID, alpha.AMemID, *fakeScheduler, *match.PMID) {
	t.Helper()

	var activated match.PMID = match.InvalidPMID
	sched := &fakeScheduler{}

	env := New(
		func(_ any, s *match.Store, _ beta.JoinID, pm match.PMID) {
			activated = pm
			s.Get(pm).Marker = "activation"
		},
		sched,
		nil,
		nil,
		nil,
	)

	n1 := env.Alpha.AddChild(env.Alpha.Root(), isPattern("p1"))
	amP1 := env.Alpha.NewAlphaMemory(n1, nil, nil)

	n2 := env.Alpha.AddChild(env.Alpha.Root(), isPattern("p2"))
	amP2 := env.Alpha.NewAlphaMemory(n2, nil, nil)

	join1 := env.Beta.NewJoin(beta.WithFirstJoin(), beta.WithDepth(0),
		beta.WithNetworkTest(func(_ any, _, _ *match.PartialMatch) (bool, error) { return true, nil }))
	join2 := env.Beta.NewJoin(beta.WithDepth(1), beta.WithRuleToActivate("rule-1"),
		beta.WithLastLevel(join1),
		beta.WithNetworkTest(func(_ any, _, _ *match.PartialMatch) (bool, error) { return true, nil }))

	env.Beta.Join(join1).NextLinks = []beta.Link{{Direction: beta.Left, Join: join2}}

	// A first join's left input is the network's synthetic "empty" match,
	// inserted once at construction time rather than per assert.
	emptyLeft := env.Store.NewPartialMatch(0)
	env.Beta.InsertLeft(env.Store, join1, emptyLeft, env.Beta.HashLeft(nil, join1, env.Store.Get(emptyLeft)))

	env.WireAlphaMemory(amP1, join1, beta.Right)
	env.WireAlphaMemory(amP2, join2, beta.Right)

	return env, amP1, amP2, sched, &activated
}

func TestAssertDrivesAlphaMatchIntoFirstJoinRight(t *testing.T) {
	env, amP1, _, _, _ := buildTwoPatternEnv(t)

	records, err := env.Assert(nil, entity.Entity{Ref: "p1"})
	if err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if len(records) != 1 || records[0].AlphaMemory != amP1 {
		t.Fatalf("records = %+v, want one record in amP1", records)
	}
	if pm := env.Store.Get(records[0].Match); pm.OwnerKind != match.OwnerJoin || !pm.RHSMemory {
		t.Fatalf("alpha match owner = %v, RHSMemory = %v, want a join's right memory", pm.OwnerKind, pm.RHSMemory)
	}
}

func TestAssertChainProducesActivationAndRetractWithdrawsIt(t *testing.T) {
	env, _, _, sched, activated := buildTwoPatternEnv(t)

	p1Records, err := env.Assert(nil, entity.Entity{Ref: "p1"})
	if err != nil {
		t.Fatalf("Assert p1: %v", err)
	}
	p2Records, err := env.Assert(nil, entity.Entity{Ref: "p2"})
	if err != nil {
		t.Fatalf("Assert p2: %v", err)
	}

	if *activated == match.InvalidPMID {
		t.Fatal("expected an activation after both patterns asserted")
	}

	// The p1 alpha match was entered into join1's right memory by Assert,
	// then combined and pushed on as join2's left input; the p2 alpha match
	// was entered directly into join2's right memory. Retracting p2 first
	// exercises unlinking an alpha match back out of a join's beta memory.
	env.Retract(nil, p2Records)
	if len(sched.removed) != 1 || sched.removed[0] != "activation" {
		t.Fatalf("removed = %+v, want exactly one activation withdrawn", sched.removed)
	}

	env.Retract(nil, p1Records)
	env.FlushGarbage(nil)

	if env.Store.AliveAlphaMatches() != 0 {
		t.Fatalf("alive alpha matches = %d, want 0", env.Store.AliveAlphaMatches())
	}
}

func TestDefaultConfigAppliesUnlessOverridden(t *testing.T) {
	env := New(
		func(_ any, _ *match.Store, _ beta.JoinID, _ match.PMID) {},
		&fakeScheduler{},
		nil,
		nil,
		nil,
		WithBetaInitialHashSize(5),
		WithCertaintyFactors(true),
	)

	if env.Config.BetaInitialHashSize != 5 {
		t.Fatalf("BetaInitialHashSize = %d, want 5", env.Config.BetaInitialHashSize)
	}
	if env.Config.BetaLoadFactor != DefaultConfig().BetaLoadFactor {
		t.Fatalf("BetaLoadFactor = %d, want default %d", env.Config.BetaLoadFactor, DefaultConfig().BetaLoadFactor)
	}
	if !env.Config.CertaintyFactors {
		t.Fatal("expected CertaintyFactors to be enabled")
	}
	if env.Log == nil {
		t.Fatal("expected a non-nil logger even when none is configured")
	}
}

func TestGoalHooksPassedThroughToRetractor(t *testing.T) {
	var updated bool
	goals := &retract.GoalHooks{
		Update: func(_ any, _ *match.Store, _ match.PMID, _ bool) { updated = true },
	}

	env := New(
		func(_ any, _ *match.Store, _ beta.JoinID, _ match.PMID) {},
		&fakeScheduler{},
		nil,
		nil,
		goals,
	)

	if env.Retractor.Goals != goals {
		t.Fatal("expected Retractor.Goals to be the GoalHooks passed to New")
	}
	_ = updated // exercised indirectly via goal-bearing joins elsewhere; not re-tested here
}

// buildFanoutEnv wires a single alpha memory to two unrelated joins as
// each one's right input — the one-alpha-match-to-multiple-joins case
// WireAlphaMemory's []AlphaLink slice exists to support (spec §1/§2's
// shared-network-structure-across-rules), exercised directly rather than
// through any shared upstream pattern.
func buildFanoutEnv(t *testing.T) (env *Environment, joinA, joinB beta.JoinID) {
	t.Helper()

	env = New(
		func(_ any, _ *match.Store, _ beta.JoinID, _ match.PMID) {},
		&fakeScheduler{},
		nil,
		nil,
		nil,
	)

	n := env.Alpha.AddChild(env.Alpha.Root(), isPattern("x"))
	amX := env.Alpha.NewAlphaMemory(n, nil, nil)

	joinA = env.Beta.NewJoin(beta.WithDepth(0))
	joinB = env.Beta.NewJoin(beta.WithDepth(0))

	env.WireAlphaMemory(amX, joinA, beta.Right)
	env.WireAlphaMemory(amX, joinB, beta.Right)

	return env, joinA, joinB
}

func TestAssertFansOneAlphaMatchIntoTwoJoinsIndependently(t *testing.T) {
	env, joinA, joinB := buildFanoutEnv(t)

	records, err := env.Assert(nil, entity.Entity{Ref: "x"})
	if err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want exactly one alpha match", records)
	}

	if got := env.Beta.Join(joinA).RightMemory.Size(); got != 1 {
		t.Fatalf("joinA right memory size = %d, want 1", got)
	}
	if got := env.Beta.Join(joinB).RightMemory.Size(); got != 1 {
		t.Fatalf("joinB right memory size = %d, want 1", got)
	}

	env.Retract(nil, records)
	env.FlushGarbage(nil)

	// Before the fan-out fix, both joins shared the same PMID: the second
	// join's InsertRight clobbered the first's bucket-chain linkage, so
	// unlinkMemory (driven by OwnerKind/OwnerID) could only ever unlink
	// the match from whichever join inserted it last, leaking a dangling
	// entry in the other join's memory forever.
	if got := env.Beta.Join(joinA).RightMemory.Size(); got != 0 {
		t.Fatalf("joinA right memory size after retract = %d, want 0", got)
	}
	if got := env.Beta.Join(joinB).RightMemory.Size(); got != 0 {
		t.Fatalf("joinB right memory size after retract = %d, want 0", got)
	}
	if env.Store.AliveAlphaMatches() != 0 {
		t.Fatalf("alive alpha matches = %d, want 0", env.Store.AliveAlphaMatches())
	}
	if env.Store.AlivePartialMatches() != 0 {
		t.Fatalf("alive partial matches = %d, want 0", env.Store.AlivePartialMatches())
	}
}

var _ agenda.Scheduler = (*fakeScheduler)(nil)
