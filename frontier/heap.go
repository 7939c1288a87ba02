package frontier

import (
	"container/heap"
	"sync"
	"time"
)

// heapEntry is one (readyTime, idx) token in the politeness heap: the
// earliest wall-clock time at which back queue B[idx] may next be drained.
type heapEntry struct {
	readyTime time.Time
	idx       int
}

// politenessQueue implements container/heap.Interface, ordered by
// readyTime ascending. Grounded on the priorityQueue pattern in
// IshaanNene-ScrapeGoat-And-ArchEnemy/internal/engine/frontier.go.
type politenessQueue []heapEntry

func (q politenessQueue) Len() int { return len(q) }
func (q politenessQueue) Less(i, j int) bool {
	return q[i].readyTime.Before(q[j].readyTime)
}
func (q politenessQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *politenessQueue) Push(x any) {
	*q = append(*q, x.(heapEntry))
}

func (q *politenessQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// politenessHeap is a thread-safe min-heap of (readyTime, idx) entries,
// with a blocking, timed pop for workers and a non-blocking push for the
// scheduler.
type politenessHeap struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pq       politenessQueue
	closed   bool
}

func newPolitenessHeap() *politenessHeap {
	h := &politenessHeap{pq: make(politenessQueue, 0, 64)}
	h.cond = sync.NewCond(&h.mu)
	heap.Init(&h.pq)
	return h
}

// push adds (readyTime, idx) to the heap and wakes one waiter.
func (h *politenessHeap) push(readyTime time.Time, idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	heap.Push(&h.pq, heapEntry{readyTime: readyTime, idx: idx})
	h.cond.Signal()
}

// pop blocks up to timeout for an entry to become available, then pops
// the earliest-ready one. ok is false on timeout or if the heap is closed
// and empty.
func (h *politenessHeap) pop(timeout time.Duration) (entry heapEntry, ok bool) {
	deadline := time.Now().Add(timeout)

	// A single timer wakes every waiter once the deadline passes; cond.Wait
	// has no native timeout, so this is the standard way to bound it.
	timer := time.AfterFunc(timeout, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer timer.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for h.pq.Len() == 0 && !h.closed {
		if !time.Now().Before(deadline) {
			return heapEntry{}, false
		}
		h.cond.Wait()
	}
	if h.pq.Len() == 0 {
		return heapEntry{}, false
	}
	item := heap.Pop(&h.pq).(heapEntry)
	return item, true
}

// len reports the number of live entries.
func (h *politenessHeap) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pq.Len()
}

// close unblocks any waiter permanently (used for shutdown in tests).
func (h *politenessHeap) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.cond.Broadcast()
}
