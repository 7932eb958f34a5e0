// Package sched implements the Global Earliest-Deadline-First,
// Non-Preemptive (GEDF-NP) scheduler: tag advancement, level-by-level
// dispatch, worker park/wake, and the reaction triggering protocol.
//
// The shape follows the teacher's per-environment singleton services
// (e.g. cmd/zoekt-sourcegraph-indexserver's Server/Queue pair): one
// Scheduler owns one reaction queue, one mutex guarding it, and one
// semaphore coordinating worker park/wake.
package sched

import (
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/tanneberger/reactor-go/internal/metrics"
	"github.com/tanneberger/reactor-go/internal/queue"
	"github.com/tanneberger/reactor-go/internal/rlog"
)

// DefaultMaxReactionLevel is used when Params is zero-valued or
// ReactionsPerLevel is empty, mirroring DEFAULT_MAX_REACTION_LEVEL in
// original_source/core/threaded/scheduler_instance.c.
const DefaultMaxReactionLevel = 63

// Params configures a Scheduler at Init time.
type Params struct {
	// ReactionsPerLevel sizes the queue's capacity hint and, if non-empty,
	// determines MaxReactionLevel as len(ReactionsPerLevel)-1.
	ReactionsPerLevel []int
}

// Scheduler is the per-environment GEDF-NP scheduler instance.
type Scheduler struct {
	env Environment

	queueMu     sync.Mutex
	queue       *queue.Queue
	levelCounts map[uint32]int
	semaphor    *semaphore.Weighted

	numWorkers  int
	idleWorkers atomic.Int64

	// nextLevel is mutated only while all workers are idle (the barrier
	// established by waitForWork), except for the single in-flight
	// dispatch level it settles on between distribute calls, which
	// GetReadyReaction reads to gate which reactions are eligible to pop.
	// That read is made safe by the same barrier plus the happens-before
	// edge the semaphore provides on worker wake-up.
	nextLevel  int
	maxLevel   int
	shouldStop atomic.Bool

	initOnce sync.Once
	freeOnce sync.Once
}

// Init allocates the scheduler's queue, mutex, and semaphore, and records
// MaxReactionLevel. It is idempotent: a second call on an already
// initialized Scheduler is a clean no-op, matching init_sched_instance's
// "already initialized" early return.
func (s *Scheduler) Init(env Environment, numWorkers int, params Params) {
	s.initOnce.Do(func() {
		maxLevel := DefaultMaxReactionLevel
		capacityHint := 0
		if len(params.ReactionsPerLevel) > 0 {
			maxLevel = len(params.ReactionsPerLevel) - 1
			for _, n := range params.ReactionsPerLevel {
				capacityHint += n
			}
		}

		s.env = env
		s.numWorkers = numWorkers
		s.nextLevel = 1
		s.maxLevel = maxLevel
		s.queue = queue.New(capacityHint)
		s.levelCounts = make(map[uint32]int, maxLevel+1)
		s.semaphor = semaphore.NewWeighted(int64(numWorkers))
		// Take every permit up front so the semaphore starts at zero
		// available: parked workers wait until releasePermits hands some back.
		s.semaphor.TryAcquire(int64(numWorkers))

		rlog.Get().Debugw("scheduler initialized",
			"numWorkers", numWorkers, "maxReactionLevel", maxLevel)
	})
}

// Free releases scheduler resources. Safe to call once; subsequent calls
// are no-ops. Unlike lf_sched_free in the C runtime (which skips freeing
// per-level queues to dodge a memory fault — see spec.md Design Notes),
// there is nothing to explicitly release here: the queue and semaphore are
// ordinary Go values reclaimed by the garbage collector once the
// Scheduler itself is unreferenced.
func (s *Scheduler) Free() {
	s.freeOnce.Do(func() {
		rlog.Get().Debugw("scheduler freed")
	})
}

// NumWorkers returns the configured worker count.
func (s *Scheduler) NumWorkers() int { return s.numWorkers }

// IdleWorkers returns a snapshot of the number of currently idle workers,
// for diagnostics and the testable invariant number_of_idle_workers ∈
// [0, N].
func (s *Scheduler) IdleWorkers() int64 { return s.idleWorkers.Load() }

// ShouldStop reports whether the scheduler has signaled workers to exit.
// Once true it never reverts, matching spec.md §8's monotonicity
// invariant.
func (s *Scheduler) ShouldStop() bool { return s.shouldStop.Load() }

func (s *Scheduler) publishQueueMetrics() {
	metrics.QueueLen.Set(float64(s.queue.Len()))
	metrics.CurrentLevel.Set(float64(s.nextLevel))
	metrics.IdleWorkers.Set(float64(s.idleWorkers.Load()))
}
