// Package reaction defines the atomic unit of work the GEDF-NP scheduler
// dispatches: a leveled, deadline-ordered callable with an atomically
// guarded status.
package reaction

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// Status is the tri-state lifecycle of a Reaction. It is backed by an
// int32 so that transitions can be performed with a compare-and-swap: the
// scheduler's publication edge between "triggered" and "picked up by a
// worker" depends on this CAS, not merely on the field's value.
type Status int32

const (
	// Inactive means the reaction is not currently queued or running.
	Inactive Status = iota
	// Queued means the reaction is sitting on the reaction queue.
	Queued
	// Running means a worker has popped the reaction and is executing it.
	Running
)

func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Queued:
		return "queued"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Index packs a reaction's topological level and a deadline-derived
// tiebreaker into a single ordering key: smaller index dispatches first.
// The level occupies the upper 32 bits, the tiebreaker the lower 32, so
// comparing indices as plain integers sorts by level first, matching
// LF_LEVEL(index) in the originating C runtime.
type Index uint64

// NewIndex packs a level and tiebreaker into an Index.
func NewIndex(level uint32, tiebreak uint32) Index {
	return Index(uint64(level)<<32 | uint64(tiebreak))
}

// Level returns the topological level encoded in the index.
func (i Index) Level() uint32 { return uint32(i >> 32) }

// Tiebreak returns the deadline-derived tiebreaker encoded in the index.
func (i Index) Tiebreak() uint32 { return uint32(i) }

// Reaction is an atomic unit of reactor work.
type Reaction struct {
	// Name is a diagnostic label, not used for identity or ordering.
	Name string

	// Index determines dispatch order: level in the upper bits, a
	// deadline-based tiebreaker in the lower bits.
	Index Index

	// Deadline is the reaction's relative deadline. It is stored as given;
	// the tiebreaker in Index is passed to New separately and is not
	// derived from Deadline.
	Deadline time.Duration

	// Function is the opaque callable a worker invokes. A panic here is
	// out of scope for recovery and is fatal to the process, matching the
	// C runtime's treatment of a faulting reaction.
	Function func(context.Context) error

	status atomic.Int32

	// heapIndex is maintained by internal/queue for O(log n) Fix/Remove.
	// It is not part of the public contract; queue is the only reader.
	heapIndex int
}

// New constructs a Reaction in the Inactive state.
func New(name string, level uint32, deadline time.Duration, tiebreak uint32, fn func(context.Context) error) *Reaction {
	r := &Reaction{
		Name:      name,
		Index:     NewIndex(level, tiebreak),
		Deadline:  deadline,
		Function:  fn,
		heapIndex: -1,
	}
	r.status.Store(int32(Inactive))
	return r
}

// Status returns the current lifecycle state.
func (r *Reaction) Status() Status {
	return Status(r.status.Load())
}

// TryQueue attempts the Inactive->Queued transition. It reports whether the
// transition succeeded; failure means the reaction is already queued or
// running and the caller's trigger is a duplicate no-op.
func (r *Reaction) TryQueue() bool {
	return r.status.CAS(int32(Inactive), int32(Queued))
}

// Done attempts the terminal Queued->Inactive transition performed when a
// worker finishes a reaction it popped directly off the queue (the common
// path: GetReadyReaction never flips to Running, it hands the reaction to
// the worker still Queued, and the worker runs it synchronously before
// calling DoneWithReaction). It reports success; failure is a scheduler
// invariant violation and is fatal to the caller.
func (r *Reaction) Done() bool {
	return r.status.CAS(int32(Queued), int32(Inactive))
}

// HeapIndex returns the back-pointer into the owning priority queue, or -1
// if the reaction is not currently on a queue.
func (r *Reaction) HeapIndex() int { return r.heapIndex }

// SetHeapIndex is called exclusively by internal/queue.
func (r *Reaction) SetHeapIndex(i int) { r.heapIndex = i }
