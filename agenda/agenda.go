// Package agenda defines the external conflict-resolution contract the
// core withdraws activations through (spec §1 Non-goals, §6.1). The core
// never inspects an activation beyond creating and removing it; ordering
// and firing policy are entirely the scheduler's concern.
package agenda

// Activation is an opaque handle produced at a leaf join (spec §3
// Activation). A partial match's Marker field holds one of these once it
// has a live activation.
type Activation = any

// Scheduler is implemented by the engine's agenda/conflict-resolution
// subsystem (spec §6.1 "RemoveActivation(env, act, nonQuiet,
// activationsRemoved) withdraws a known activation; the engine calls it
// when a partial match is unlinked").
type Scheduler interface {
	RemoveActivation(ctx any, act Activation, nonQuiet, activationsRemoved bool)
}
