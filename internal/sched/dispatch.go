package sched

import (
	"context"

	"github.com/tanneberger/reactor-go/internal/metrics"
	"github.com/tanneberger/reactor-go/internal/reaction"
	"github.com/tanneberger/reactor-go/internal/rlog"
)

// TriggerReaction schedules r to run at the current tag. It performs the
// atomic Inactive->Queued transition; a failed transition means r is
// already queued or running for this tag and the call is silently
// dropped (idempotent trigger, spec.md §7 error taxonomy item 2).
// workerID is the ID of the calling worker, or -1 for a non-worker caller
// (e.g. a timer or external event source). TriggerReaction never blocks on
// tag advancement and is safe to call concurrently from any number of
// goroutines.
func (s *Scheduler) TriggerReaction(r *reaction.Reaction, workerID int) {
	if r == nil || !r.TryQueue() {
		return
	}

	s.queueMu.Lock()
	s.queue.Insert(r)
	s.levelCounts[r.Index.Level()]++
	s.publishQueueMetrics()
	s.queueMu.Unlock()

	rlog.Get().Debugw("reaction triggered", "reaction", r.Name, "workerID", workerID)
}

// GetReadyReaction blocks until it can return a reaction for worker
// workerID to execute, or until the scheduler has been signaled to stop,
// in which case it returns (nil, false).
func (s *Scheduler) GetReadyReaction(workerID int) (*reaction.Reaction, bool) {
	for {
		if s.ShouldStop() {
			return nil, false
		}

		s.queueMu.Lock()
		var r *reaction.Reaction
		// Level boundaries are strict: a reaction is only poppable once
		// the scheduler has settled on its level as the one currently
		// being distributed. Reactions at a later level may already sit
		// on the shared queue (triggered as a side effect of an earlier
		// level's execution) but must wait their turn.
		if top := s.queue.Peek(); top != nil && top.Index.Level() == uint32(s.nextLevel) {
			r = s.queue.Pop()
			s.levelCounts[top.Index.Level()]--
		}
		s.publishQueueMetrics()
		s.queueMu.Unlock()

		if r != nil {
			return r, true
		}

		s.waitForWork(workerID)
	}
}

// DoneWithReaction informs the scheduler that workerID has finished
// executing r. It performs the atomic Queued->Inactive transition;
// failure indicates a scheduler invariant violation (r was not in the
// Queued state) and is fatal, since recovering from it safely is not
// possible.
func (s *Scheduler) DoneWithReaction(workerID int, r *reaction.Reaction) {
	if !r.Done() {
		rlog.Fatalf("scheduler: worker %d: reaction %q had unexpected status %v, expected queued",
			workerID, r.Name, r.Status())
	}
	metrics.ReactionsExecuted.Inc()
}

// waitForWork is the single most delicate algorithm in the scheduler: the
// barrier that lets the last-idle worker mutate scheduler state without
// holding queueMu. The idle counter is incremented *before* branching on
// "am I last", so that any concurrent TriggerReaction (from a timer or
// other external source) racing with this increment is guaranteed to
// observe correct state and take queueMu rather than a stale fast path —
// see spec.md §9, "Ownership of the queue during distribute".
func (s *Scheduler) waitForWork(workerID int) {
	idle := s.idleWorkers.Inc()
	if int(idle) == s.numWorkers {
		rlog.Get().Debugw("worker is last idle thread, advancing scheduler", "workerID", workerID)
		s.tryAdvanceTagAndDistribute()
		return
	}

	rlog.Get().Debugw("worker parking on scheduling semaphore", "workerID", workerID)
	if err := s.semaphor.Acquire(context.Background(), 1); err != nil {
		rlog.Fatalf("scheduler: worker %d: semaphore acquire failed: %v", workerID, err)
	}
}

// tryAdvanceTagAndDistribute runs only when all workers are idle and the
// queue is (by construction) empty of anything below the current level. It
// either finds more ready reactions to distribute, or advances the
// logical tag — possibly reaching the stop tag, at which point it signals
// every other worker to exit.
func (s *Scheduler) tryAdvanceTagAndDistribute() {
	for {
		if s.nextLevel > s.maxLevel {
			s.nextLevel = 0

			mu := s.env.Mutex()
			mu.Lock()
			if s.env.AdvanceTagLocked() {
				rlog.Get().Debugw("scheduler reached stop tag")
				s.shouldStop.Store(true)
				metrics.TagAdvances.Inc()
				s.releasePermits(s.numWorkers - 1)
				mu.Unlock()
				return
			}
			metrics.TagAdvances.Inc()
			mu.Unlock()
		}

		if n := s.distributeReadyReactions(); n > 0 {
			s.notifyWorkers(n)
			return
		}
	}
}

// distributeReadyReactions advances the dispatch level until it finds a
// level with ready reactions on the queue, or exhausts all levels for this
// tag. The single shared queue is globally ordered by (level, deadline),
// so once every reaction below nextLevel has drained — guaranteed by the
// all-idle barrier that got us here — any reactions still on the queue
// belong to nextLevel or later; env.TryAdvanceLevel lets a federated
// environment gate how far the level may move in a single step.
func (s *Scheduler) distributeReadyReactions() int {
	for s.nextLevel <= s.maxLevel {
		s.env.TryAdvanceLevel(&s.nextLevel)

		s.queueMu.Lock()
		n := s.levelCounts[uint32(s.nextLevel)]
		s.queueMu.Unlock()

		if n > 0 {
			metrics.CurrentLevel.Set(float64(s.nextLevel))
			return n
		}
	}
	return 0
}

// notifyWorkers wakes the subset of idle workers needed to consume the n
// reactions just made ready. It releases k-1 permits, not k: the calling
// worker is itself one of the k workers being notified, and proceeds
// without acquiring a permit of its own. Releasing k permits here would
// leak one permit and spuriously wake a phantom worker on the next cycle
// (spec.md §9, "Under-notification by one").
func (s *Scheduler) notifyWorkers(executingQueueSize int) {
	idle := int(s.idleWorkers.Load())
	k := idle
	if executingQueueSize < k {
		k = executingQueueSize
	}
	s.idleWorkers.Sub(int64(k))

	rlog.Get().Debugw("scheduler notifying workers", "count", k)
	s.releasePermits(k - 1)
}

func (s *Scheduler) releasePermits(n int) {
	if n > 0 {
		s.semaphor.Release(int64(n))
	}
}
