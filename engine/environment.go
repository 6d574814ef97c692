// Package engine wires match, alpha, beta, drive, gc, truth and retract
// into a single environment exposing the three operations an external
// working-memory store drives the core through: Assert, Retract, and
// FlushGarbage (spec §1 "the core exposes assert one entity, retract one
// entity, and a safe-point flush").
//
// GlobalLHSBinds/GlobalRHSBinds/GlobalJoin from spec §5's shared-resource
// list have no field here: the original engine sets them as globals so a
// join-test callback can read "the current left/right bind, the current
// join" without parameters. Every JoinTest/Test/HashFunc in this port
// already takes those explicitly (ctx, left, right *match.PartialMatch;
// ctx, j beta.JoinID), so the information they carried is simply in
// scope at every call site instead of threaded through package state.
package engine

import (
	"go.uber.org/zap"

	"github.com/coregx/rete/agenda"
	"github.com/coregx/rete/alpha"
	"github.com/coregx/rete/beta"
	"github.com/coregx/rete/drive"
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/gc"
	"github.com/coregx/rete/match"
	"github.com/coregx/rete/retract"
	"github.com/coregx/rete/truth"
)

// RetractEntityFunc asks the external working-memory store to retract an
// entity that just lost its last unit of logical support (spec §4.6).
type RetractEntityFunc func(ctx any, ref any)

// AlphaLink records that alpha memory matches feed one join's left or
// right input directly (spec §4.1/§4.2: a pattern's alpha memory is the
// right input of the first join testing that pattern, or — for a
// negated/from-the-right first join — the input EPMDrive/AssertLeft
// drives from the network's synthetic empty left). Building this table
// is the network compiler's job, out of scope here (spec §1); Environment
// only walks it.
type AlphaLink struct {
	Join      beta.JoinID
	Direction beta.Direction
}

// Environment is one instance of the core network: a match arena, the
// alpha and beta networks built over it, the driver that propagates
// assertions through the beta network, the garbage list, the logical-
// support ledger, and the retractor that unwinds all of the above.
type Environment struct {
	Config Config

	Store *match.Store
	Alpha *alpha.Network
	Beta  *beta.Network
	Drive *drive.Driver
	GC    *gc.List
	Ledger *truth.Ledger
	Retractor *retract.Retractor

	Log *zap.Logger

	alphaLinks map[alpha.AMemID][]AlphaLink
}

// WireAlphaMemory records that matches entering alpha memory amID should
// be driven into join j's left or right input. Called once per link while
// building a network, before any entity is asserted.
func (env *Environment) WireAlphaMemory(amID alpha.AMemID, j beta.JoinID, dir beta.Direction) {
	env.alphaLinks[amID] = append(env.alphaLinks[amID], AlphaLink{Join: j, Direction: dir})
}

// New creates an Environment. activate creates (or refreshes) the
// activation for a partial match produced at a leaf join; sched withdraws
// activations during retraction; retractEntity is called by the ledger
// when an entity loses its last logical support. attachGoal and goals may
// be nil if the caller never configures goal-supported joins.
func New(
	activate drive.ActivateFunc,
	sched agenda.Scheduler,
	retractEntity RetractEntityFunc,
	attachGoal drive.AttachGoalFunc,
	goals *retract.GoalHooks,
	opts ...Option,
) *Environment {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	store := match.NewStore()
	alphaNet := alpha.NewNetwork()
	betaNet := beta.NewNetwork(
		beta.WithInitialHashSize(cfg.BetaInitialHashSize),
		beta.WithLoadFactor(cfg.BetaLoadFactor),
	)
	driver := drive.New(betaNet, activate, attachGoal)
	gcList := gc.New(store)

	var ledgerRetract truth.RetractFunc
	if retractEntity != nil {
		ledgerRetract = truth.RetractFunc(retractEntity)
	} else {
		ledgerRetract = func(_ any, _ any) {}
	}
	ledger := truth.NewLedger(ledgerRetract, cfg.CertaintyFactors)

	r := retract.New(alphaNet, betaNet, driver, sched, ledger, gcList, cfg.Logger)
	r.Goals = goals
	driver.SetWithdraw(func(ctx any, store *match.Store, pm match.PMID) {
		r.WithdrawPositiveConsequences(store, ctx, pm)
	})

	return &Environment{
		Config:     cfg,
		Store:      store,
		Alpha:      alphaNet,
		Beta:       betaNet,
		Drive:      driver,
		GC:         gcList,
		Ledger:     ledger,
		Retractor:  r,
		Log:        cfg.Logger,
		alphaLinks: make(map[alpha.AMemID][]AlphaLink),
	}
}

// Assert enters e into the discrimination network and drives every
// satisfying alpha match into whichever join inputs WireAlphaMemory
// registered for its memory (spec §4.1 "enter(entity)" followed by §4.2
// "assert from the left"/"assert from the right"). The returned records
// must be retained by the caller's working-memory store and handed back
// to Retract when e is later retracted.
func (env *Environment) Assert(ctx any, e entity.Entity) ([]alpha.PatternMatchRecord, error) {
	records, err := env.Alpha.Enter(env.Store, ctx, e)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		// A single alpha match may be wired to more than one join (the
		// shared-network-structure-across-rules case): only the first
		// destination can reuse rec.Match itself, since a PartialMatch
		// carries exactly one OwnerKind/OwnerID/HashValue/NextInMemory/
		// PrevInMemory set. Every further destination gets its own
		// match.Clone, threaded onto rec.Match's alias list for retract.
		for i, link := range env.alphaLinks[rec.AlphaMemory] {
			m := rec.Match
			if i > 0 {
				m = match.Clone(env.Store, rec.Match)
			}
			switch link.Direction {
			case beta.Left:
				env.Drive.AssertLeft(env.Store, ctx, link.Join, m)
			case beta.Right:
				env.Drive.AssertRight(env.Store, ctx, link.Join, m)
			}
		}
	}
	return records, nil
}

// Retract withdraws every consequence of records — every activation they
// produced, directly or transitively, every blocking link they anchored —
// and returns their storage to the garbage list (spec §4.4.1).
func (env *Environment) Retract(ctx any, records []alpha.PatternMatchRecord) {
	env.Retractor.NetworkRetract(env.Store, ctx, records)
}

// FlushGarbage reclaims every partial match queued on the garbage list and
// drains any pending logical retractions to a fixed point. Call this once
// after the outer Assert/Retract call returns, per spec §5's ordering
// guarantee — never from inside a join test or RHS action.
func (env *Environment) FlushGarbage(ctx any) {
	env.GC.Flush()
	env.Ledger.ForceLogicalRetractions(ctx)
}
