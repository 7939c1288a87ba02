package frontier

import "sync"

// hintedEmpty is the set E of back-queue indices a worker suspects are
// drained, confirmed or refuted by the scheduler. It has its own mutex,
// independent of M and I (which only the scheduler thread ever touches).
type hintedEmpty struct {
	mu  sync.Mutex
	set map[int]struct{}
}

func newHintedEmpty() *hintedEmpty {
	return &hintedEmpty{set: make(map[int]struct{})}
}

// add hints that idx may be empty.
func (e *hintedEmpty) add(idx int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set[idx] = struct{}{}
}

// removeIfPresent removes idx from the hint set, reporting whether it was
// present (i.e. whether a racing empty-hint is being refuted).
func (e *hintedEmpty) removeIfPresent(idx int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.set[idx]; ok {
		delete(e.set, idx)
		return true
	}
	return false
}

// drain atomically empties the set and returns its former contents. Only
// the scheduler calls this.
func (e *hintedEmpty) drain() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.set) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(e.set))
	for idx := range e.set {
		idxs = append(idxs, idx)
	}
	e.set = make(map[int]struct{})
	return idxs
}

// hasEmptySignal is a single-waiter, many-setter wakeup flag, implemented
// as a buffered channel of size 1 so Set never blocks a worker and Clear
// is idempotent. This gives the scheduler the event-driven wait spec 4.3
// step 4 calls for without the lost-wakeup hazard of a condition variable
// signaled before its single waiter starts waiting.
type hasEmptySignal struct {
	ch chan struct{}
}

func newHasEmptySignal() *hasEmptySignal {
	return &hasEmptySignal{ch: make(chan struct{}, 1)}
}

// set wakes the scheduler (non-blocking: a pending signal is sufficient).
func (s *hasEmptySignal) set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// clear drops any pending signal without waiting.
func (s *hasEmptySignal) clear() {
	select {
	case <-s.ch:
	default:
	}
}

// wait blocks until set is called (or was already pending).
func (s *hasEmptySignal) wait() {
	<-s.ch
}
