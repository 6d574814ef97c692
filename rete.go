// Package rete implements the core of a forward-chaining production-rule
// engine: a Rete discrimination/join network, its retraction pathway, and
// truth-maintenance support.
//
// The public surface is deliberately thin — Assert, Retract, and
// FlushGarbage — mirroring the three operations an external working-memory
// store drives the core through. Building the discrimination/join network
// itself (compiling rule text into pattern nodes, join tests, and hash
// expressions) is a separate concern this package does not provide; see
// engine.Environment.WireAlphaMemory for the one piece of topology this
// package does need from a caller-supplied compiler.
//
// Basic usage:
//
//	net := rete.New(activateFunc, scheduler, retractEntityFunc, nil, nil)
//	records, err := net.Assert(ctx, someEntity)
//	...
//	net.Retract(ctx, records)
//	net.FlushGarbage(ctx)
package rete

import (
	"github.com/coregx/rete/agenda"
	"github.com/coregx/rete/alpha"
	"github.com/coregx/rete/beta"
	"github.com/coregx/rete/drive"
	"github.com/coregx/rete/engine"
	"github.com/coregx/rete/entity"
	"github.com/coregx/rete/retract"
)

// Network is one running instance of the core: the discrimination and
// join networks, the driver propagating matches between them, and the
// retraction/garbage/truth-maintenance machinery behind them.
//
// A Network is safe to use from exactly one goroutine at a time (spec §5);
// it carries no internal synchronization.
type Network struct {
	env *engine.Environment
}

// New builds an empty Network. activate creates (or refreshes) the
// activation for a partial match produced at a leaf join; sched withdraws
// activations during retraction; retractEntity is called when an entity
// loses its last unit of logical support (may be nil if the caller never
// uses logical dependencies). attachGoal and goals may be nil if the
// caller never configures goal-supported joins.
func New(
	activate drive.ActivateFunc,
	sched agenda.Scheduler,
	retractEntity engine.RetractEntityFunc,
	attachGoal drive.AttachGoalFunc,
	goals *retract.GoalHooks,
	opts ...engine.Option,
) *Network {
	return &Network{env: engine.New(activate, sched, retractEntity, attachGoal, goals, opts...)}
}

// DefaultConfig returns the Config a Network built with no Option
// overrides uses.
func DefaultConfig() engine.Config {
	return engine.DefaultConfig()
}

// Alpha returns the network's discrimination network, for a caller's own
// network-compiler to attach pattern nodes and alpha memories to.
func (n *Network) Alpha() *alpha.Network { return n.env.Alpha }

// Beta returns the network's join network, for a caller's own network-
// compiler to attach join nodes to.
func (n *Network) Beta() *beta.Network { return n.env.Beta }

// WireAlphaMemory records that matches entering alpha memory amID should
// be driven into join j's left or right input. Called once per link while
// building a network, before any entity is asserted.
func (n *Network) WireAlphaMemory(amID alpha.AMemID, j beta.JoinID, dir beta.Direction) {
	n.env.WireAlphaMemory(amID, j, dir)
}

// Assert enters e into the network and drives every satisfying alpha
// match into whichever join inputs WireAlphaMemory registered for its
// memory. The returned records must be retained by the caller and handed
// back to Retract when e is later retracted.
func (n *Network) Assert(ctx any, e entity.Entity) ([]alpha.PatternMatchRecord, error) {
	return n.env.Assert(ctx, e)
}

// Retract withdraws every consequence of records — every activation they
// produced, directly or transitively, every blocking link they anchored —
// and returns their storage to the garbage list.
func (n *Network) Retract(ctx any, records []alpha.PatternMatchRecord) {
	n.env.Retract(ctx, records)
}

// FlushGarbage reclaims every partial match queued for deferred free and
// drains any pending logical retractions to a fixed point. Call this once
// after an outer Assert/Retract call returns — never from inside a join
// test or RHS action.
func (n *Network) FlushGarbage(ctx any) {
	n.env.FlushGarbage(ctx)
}
