package optimistic_test

import (
	"testing"

	"github.com/nikbrunner/bmsync/internal/optimistic"
	"gotest.tools/v3/assert"
)

type counter struct {
	items []string
	n     int
}

func removeFirst(c counter) counter {
	return counter{items: append([]string(nil), c.items[1:]...), n: c.n - 1}
}

func TestBegin_AppliesMutation(t *testing.T) {
	start := counter{items: []string{"a", "b"}, n: 2}

	next, tx := optimistic.Begin(start, removeFirst, nil)

	assert.DeepEqual(t, next.items, []string{"b"})
	assert.Equal(t, next.n, 1)
	assert.Equal(t, tx.Before().n, 2)
	assert.Assert(t, !tx.Done())
}

func TestRollback_RestoresCapturedState(t *testing.T) {
	start := counter{items: []string{"a", "b"}, n: 2}

	next, tx := optimistic.Begin(start, removeFirst, nil)
	got := tx.Rollback(next)

	assert.DeepEqual(t, got.items, []string{"a", "b"})
	assert.Equal(t, got.n, 2)
	assert.Assert(t, tx.Done())
}

func TestRollback_UsesUndoAgainstCurrentState(t *testing.T) {
	start := counter{items: []string{"a", "b"}, n: 2}
	undo := func(cur counter) counter {
		return counter{items: append([]string{"a"}, cur.items...), n: cur.n + 1}
	}

	_, tx := optimistic.Begin(start, removeFirst, undo)
	// Another update replaced the state before the remote call failed.
	current := counter{items: []string{"b", "c"}, n: 2}
	got := tx.Rollback(current)

	assert.DeepEqual(t, got.items, []string{"a", "b", "c"})
	assert.Equal(t, got.n, 3)
}

func TestCommit_MakesRollbackNoop(t *testing.T) {
	start := counter{items: []string{"a"}, n: 1}

	next, tx := optimistic.Begin(start, removeFirst, nil)
	tx.Commit()
	got := tx.Rollback(next)

	assert.Equal(t, got.n, 0)
	assert.Assert(t, tx.Done())
}

func TestRollback_Twice(t *testing.T) {
	start := counter{items: []string{"a"}, n: 1}

	next, tx := optimistic.Begin(start, removeFirst, nil)
	first := tx.Rollback(next)
	second := tx.Rollback(first)

	assert.Equal(t, second.n, 1)
}
