package sched_test

import (
	"sync"

	"github.com/tanneberger/reactor-go/internal/sched"
)

// fakeEnv is a minimal, non-federated Environment: TryAdvanceLevel simply
// increments the level, and AdvanceTagLocked pops the next tag off a fixed
// schedule, reporting stop once exhausted. It stands in for the event
// queue / federated tag-advance logic that spec.md §1 places out of scope.
type fakeEnv struct {
	mu sync.Mutex

	numTags    int
	tagsDone   int
	totalCalls int
	onAdvance  func(tagIndex int)
}

func newFakeEnv(numTags int, onAdvance func(tagIndex int)) *fakeEnv {
	return &fakeEnv{numTags: numTags, onAdvance: onAdvance}
}

func (e *fakeEnv) Mutex() *sync.Mutex { return &e.mu }

func (e *fakeEnv) TryAdvanceLevel(level *int) { *level++ }

// AdvanceTagLocked returns false (not stop) for the first numTags calls,
// invoking onAdvance with the 0-based tag index each time, then returns
// true (stop) on every call thereafter.
func (e *fakeEnv) AdvanceTagLocked() bool {
	e.totalCalls++
	if e.tagsDone >= e.numTags {
		return true
	}
	idx := e.tagsDone
	e.tagsDone++
	if e.onAdvance != nil {
		e.onAdvance(idx)
	}
	return false
}

// TotalCalls reports how many times AdvanceTagLocked has been called,
// including the final stop-reporting call.
func (e *fakeEnv) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalCalls
}

var _ sched.Environment = (*fakeEnv)(nil)
