// Package optimistic implements apply-then-confirm local state changes.
//
// A Tx captures the state before a tentative change. The caller renders the
// tentative state immediately, performs the remote call, and then either
// commits (keeps the tentative state) or rolls back.
package optimistic

// Tx is a pending optimistic change over a value of type S.
type Tx[S any] struct {
	before S
	undo   func(current S) S
	done   bool
}

// Begin applies mutate to state and returns the tentative state together
// with a transaction that can undo it. undo receives the state as it is when
// Rollback is called, which may differ from the tentative state if other
// updates landed in between. A nil undo restores the captured state verbatim.
func Begin[S any](state S, mutate func(S) S, undo func(current S) S) (S, *Tx[S]) {
	tx := &Tx[S]{before: state, undo: undo}
	return mutate(state), tx
}

// Commit marks the change as confirmed. Subsequent Rollback calls are no-ops.
func (tx *Tx[S]) Commit() {
	tx.done = true
}

// Rollback reverts the change against current and returns the reverted
// state. Rolling back a committed or already rolled back Tx returns current
// unchanged.
func (tx *Tx[S]) Rollback(current S) S {
	if tx.done {
		return current
	}
	tx.done = true
	if tx.undo == nil {
		return tx.before
	}
	return tx.undo(current)
}

// Before returns the state captured when the transaction began.
func (tx *Tx[S]) Before() S {
	return tx.before
}

// Done reports whether the transaction was committed or rolled back.
func (tx *Tx[S]) Done() bool {
	return tx.done
}
