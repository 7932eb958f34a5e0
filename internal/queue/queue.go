// Package queue implements the reaction queue: a binary heap ordered by
// reaction index (level, then deadline tiebreaker) ascending, with a
// back-pointer on each reaction for O(log n) priority fix and removal.
//
// Queue is not internally synchronized; callers (internal/sched) serialize
// access with a dedicated mutex, the same division of labor the teacher's
// own indexing queue uses between its pqueue and sync.Mutex.
package queue

import (
	"container/heap"

	"github.com/tanneberger/reactor-go/internal/reaction"
)

// Queue is a priority queue of reactions ordered by ascending Index.
type Queue struct {
	items pqueue
}

// New returns an empty queue with capacity reserved for the given static
// reaction count, mirroring the teacher's use of the program's known
// reaction count to size its queues up front.
func New(capacityHint int) *Queue {
	return &Queue{items: make(pqueue, 0, capacityHint)}
}

// Len reports the number of reactions currently on the queue.
func (q *Queue) Len() int { return len(q.items) }

// Insert adds r to the queue. r must not already be on the queue.
func (q *Queue) Insert(r *reaction.Reaction) {
	heap.Push(&q.items, r)
}

// Pop removes and returns the reaction with the smallest index, or nil if
// the queue is empty.
func (q *Queue) Pop() *reaction.Reaction {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(&q.items).(*reaction.Reaction)
}

// Peek returns the reaction with the smallest index without removing it,
// or nil if the queue is empty. The scheduler uses this to check whether
// the reaction at the head of the queue belongs to the level currently
// being dispatched before committing to Pop it.
func (q *Queue) Peek() *reaction.Reaction {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Fix re-establishes heap order for r after its Index has changed, without
// removing and reinserting it. r must currently be on the queue.
func (q *Queue) Fix(r *reaction.Reaction) {
	heap.Fix(&q.items, r.HeapIndex())
}

// Remove removes r from the queue ahead of its natural turn. r must
// currently be on the queue.
func (q *Queue) Remove(r *reaction.Reaction) {
	heap.Remove(&q.items, r.HeapIndex())
}

// Contains reports whether r is currently on the queue.
func Contains(r *reaction.Reaction) bool {
	return r.HeapIndex() >= 0
}

// pqueue implements container/heap.Interface over *reaction.Reaction,
// maintaining each reaction's heap-index back-pointer on every mutation —
// the same responsibility the teacher's pqueue.Swap/Push/Pop carry for
// queueItem.heapIdx.
type pqueue []*reaction.Reaction

func (pq pqueue) Len() int { return len(pq) }

func (pq pqueue) Less(i, j int) bool {
	return pq[i].Index < pq[j].Index
}

func (pq pqueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].SetHeapIndex(i)
	pq[j].SetHeapIndex(j)
}

func (pq *pqueue) Push(x any) {
	r := x.(*reaction.Reaction)
	r.SetHeapIndex(len(*pq))
	*pq = append(*pq, r)
}

func (pq *pqueue) Pop() any {
	old := *pq
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.SetHeapIndex(-1)
	*pq = old[:n-1]
	return r
}
