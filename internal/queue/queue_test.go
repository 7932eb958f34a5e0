package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanneberger/reactor-go/internal/queue"
	"github.com/tanneberger/reactor-go/internal/reaction"
)

func noop(context.Context) error { return nil }

func TestEDFOrderingWithinLevel(t *testing.T) {
	// Three reactions at level 1 with deadlines {100, 50, 200} triggered
	// in that order: expected pop order is 50, 100, 200 (scenario 3).
	q := queue.New(3)
	r100 := reaction.New("r100", 1, 100, 100, noop)
	r50 := reaction.New("r50", 1, 50, 50, noop)
	r200 := reaction.New("r200", 1, 200, 200, noop)

	for _, r := range []*reaction.Reaction{r100, r50, r200} {
		require.True(t, r.TryQueue())
		q.Insert(r)
	}

	assert.Same(t, r50, q.Pop())
	assert.Same(t, r100, q.Pop())
	assert.Same(t, r200, q.Pop())
	assert.Nil(t, q.Pop())
}

func TestLevelOrdering(t *testing.T) {
	// A reaction at level 1 must sort before one at level 2 regardless of
	// deadline tiebreakers (scenario 2's precedence, expressed at the
	// queue level).
	a := reaction.New("A", 1, 0, 0xFFFFFFFF, noop)
	b := reaction.New("B", 2, 0, 0, noop)

	q := queue.New(2)
	require.True(t, b.TryQueue())
	q.Insert(b)
	require.True(t, a.TryQueue())
	q.Insert(a)

	assert.Same(t, a, q.Pop())
	assert.Same(t, b, q.Pop())
}

func TestFixAfterPriorityChange(t *testing.T) {
	q := queue.New(2)
	low := reaction.New("low", 1, 0, 10, noop)
	high := reaction.New("high", 1, 0, 20, noop)
	require.True(t, low.TryQueue())
	q.Insert(low)
	require.True(t, high.TryQueue())
	q.Insert(high)

	require.Same(t, low, q.Pop())
	q.Insert(low)

	// Lower high's tiebreak below low's and re-fix; high should now pop first.
	high.Index = reaction.NewIndex(1, 0)
	q.Fix(high)

	assert.Same(t, high, q.Pop())
	assert.Same(t, low, q.Pop())
}

func TestRemove(t *testing.T) {
	q := queue.New(2)
	a := reaction.New("a", 1, 0, 0, noop)
	b := reaction.New("b", 1, 0, 1, noop)
	q.Insert(a)
	q.Insert(b)

	assert.True(t, queue.Contains(a))
	q.Remove(a)
	assert.False(t, queue.Contains(a))
	assert.Equal(t, 1, q.Len())
	assert.Same(t, b, q.Pop())
}
