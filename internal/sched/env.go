package sched

import "sync"

// Environment is the collaborator the GEDF-NP scheduler defers to for
// everything outside its own scope: the reaction graph's level topology
// and the (possibly federated) tag-advance logic. spec.md §6 specifies
// these as external interfaces the core calls but does not implement.
type Environment interface {
	// Mutex returns the environment-wide mutex that serializes tag-level
	// decisions, including across peer schedulers in a federation.
	Mutex() *sync.Mutex

	// TryAdvanceLevel increments *level, blocking if federated peers
	// require coordination before the next level may be entered. It is
	// called only from within the scheduler's distribute loop, which never
	// holds Mutex() while calling it.
	TryAdvanceLevel(level *int)

	// AdvanceTagLocked advances the logical tag. The caller holds Mutex()
	// for the duration of the call. It returns true once the stop tag has
	// been reached, at which point the scheduler will signal all workers
	// to exit and never call AdvanceTagLocked again.
	AdvanceTagLocked() (stop bool)
}
