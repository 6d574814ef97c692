// Package entity defines the contract the rete core needs from the
// working-memory store. The store itself — facts, instances, how they are
// indexed and persisted — is an external collaborator and out of scope;
// this package only pins down the capability interface the core calls
// back into during retraction and during the speculative scans that back
// negated/exists joins.
package entity

// Ref is an opaque handle to a working-memory entity (a fact or an
// instance). The core never inspects it; it only carries it through
// alpha/partial matches and passes it back to Ops.
type Ref = any

// Ops is the capability table a working-memory entity must provide. It
// mirrors CLIPS's PatternEntity vtable: synchronized/isDeleted tell the
// retract pathway whether a reference captured earlier in a partial match
// is still trustworthy, and Delete lets the core release engine-owned
// resources attached to the entity when it is finally discarded.
type Ops interface {
	// Synchronized reports whether ref still agrees with what the pattern
	// network last saw for it. A false result means a partial match that
	// captured ref is defunct and must be treated as if it didn't exist
	// (spec I5).
	Synchronized(ctx any, ref Ref) bool

	// IsDeleted reports whether ref has already been marked for deletion
	// by the working-memory store, even though the core's own retraction
	// of it may not yet have completed.
	IsDeleted(ctx any, ref Ref) bool

	// Delete releases any resources the working-memory store attached to
	// ref via base.deleteFunction.
	Delete(ctx any, ref Ref)
}

// Entity pairs a handle with the ops table that knows how to interpret
// it. Alpha matches and (indirectly) partial matches carry these.
type Entity struct {
	Ref Ref
	Ops Ops
}

// Synchronized is a nil-safe convenience wrapper: an Entity with no Ops
// table (e.g. the zero value used for pseudo bindings) is always treated
// as synchronized and not deleted, since there is nothing to go stale.
func (e Entity) Synchronized(ctx any) bool {
	if e.Ops == nil {
		return true
	}
	return e.Ops.Synchronized(ctx, e.Ref)
}

// IsDeleted mirrors Synchronized's nil-safety for the isDeleted callback.
func (e Entity) IsDeleted(ctx any) bool {
	if e.Ops == nil {
		return false
	}
	return e.Ops.IsDeleted(ctx, e.Ref)
}

// Source is the iteration protocol the core uses to walk every registered
// pattern-entity kind (GetNextPatternEntity in the original design). A
// nil cursor requests the first entity; a nil returned cursor with ok
// true followed by subsequent calls returning ok false signals the end of
// one kind before iteration (if any) continues into the next.
type Source interface {
	Next(ctx any, cursor any) (next Entity, nextCursor any, ok bool)
}
