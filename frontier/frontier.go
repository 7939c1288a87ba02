// Package frontier implements a Mercator-style URL frontier: a two-level
// queueing discipline (a single front queue feeding per-host back queues)
// coupled with a politeness heap, so a pool of concurrent fetch workers
// can be kept busy without ever hammering one host faster than its
// configured crawl delay.
package frontier

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultGetTimeout bounds how long Get blocks waiting for a ready
	// back queue before returning (no URL, none).
	defaultGetTimeout = 60 * time.Second

	// schedulerIdleSleep is how long the scheduler sleeps when every back
	// queue is inactive and no worker will ever signal has-empty.
	schedulerIdleSleep = 100 * time.Millisecond
)

// Frontier is a Mercator-style URL frontier. Workers call Get to receive a
// URL (already dispatched through fetchFn, honoring per-host politeness);
// they call Put to enqueue newly discovered URLs. A single internal
// scheduler goroutine moves URLs from the front queue into per-host back
// queues and maintains the politeness heap.
type Frontier[R any] struct {
	visited *ApproximateSet
	policy  *PolicyCache

	front *fifo
	back  []*fifo

	// M and I: touched only by the scheduler goroutine. No lock guards
	// them — every mutation is serialized on that single goroutine.
	hostToIdx map[string]int
	idxToHost map[int]string
	inactive  map[int]struct{}

	heap     *politenessHeap
	hinted   *hintedEmpty
	hasEmpty *hasEmptySignal

	// activeHosts mirrors len(idxToHost); it is written only by the
	// scheduler goroutine (same single-writer discipline as M and I) but
	// read via atomic load so ActiveHosts/Inactive are safe to call from
	// any goroutine (metrics, tests) without a second lock on M/I.
	activeHosts atomic.Int64

	getTimeout time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Config configures a Frontier's queueing discipline.
type Config struct {
	// Workers is W, the number of fetch workers this frontier serves.
	// The number of back queues is fixed at 3*Workers, per the Mercator
	// recommendation.
	Workers int
	// GetTimeout bounds how long Get blocks for a ready back queue.
	// Defaults to 60s.
	GetTimeout time.Duration
}

// New creates a Frontier and starts its scheduler goroutine. Callers must
// call Close when done to stop the scheduler.
func New[R any](cfg Config, visited *ApproximateSet, policy *PolicyCache) *Frontier[R] {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.GetTimeout <= 0 {
		cfg.GetTimeout = defaultGetTimeout
	}

	n := 3 * cfg.Workers
	back := make([]*fifo, n)
	inactive := make(map[int]struct{}, n)
	for i := range back {
		back[i] = &fifo{}
		inactive[i] = struct{}{}
	}

	f := &Frontier[R]{
		visited:    visited,
		policy:     policy,
		front:      &fifo{},
		back:       back,
		hostToIdx:  make(map[string]int),
		idxToHost:  make(map[int]string),
		inactive:   inactive,
		heap:       newPolitenessHeap(),
		hinted:     newHintedEmpty(),
		hasEmpty:   newHasEmptySignal(),
		getTimeout: cfg.GetTimeout,
		stopCh:     make(chan struct{}),
	}

	f.wg.Add(1)
	go f.schedulerLoop()

	return f
}

// Put inserts url into the frontier iff it has not been seen before
// (checked against the Approximate Set). Idempotent; safe from any
// goroutine. V.add happens before F.put, so two concurrent Put calls for
// the same URL race on V's lock and exactly one proceeds to F.
func (f *Frontier[R]) Put(rawURL string) {
	if !f.visited.CheckAndAdd(rawURL) {
		return
	}
	f.front.push(rawURL)
}

// Get pops a URL honoring per-host politeness, invokes fetchFn(url), and
// returns its result. ok is false if no URL was dispatched this call
// (the bounded wait for a ready back queue timed out, or the back queue
// turned out to be empty — an empty hint for the scheduler to confirm).
func (f *Frontier[R]) Get(ctx context.Context, fetchFn func(ctx context.Context, url string) R) (result R, ok bool) {
	entry, ok := f.heap.pop(f.getTimeout)
	if !ok {
		return result, false
	}

	rawURL, ok := f.back[entry.idx].tryPop()
	if !ok {
		// Empty hint: the scheduler may be mid-push to this idx right now.
		// Hand it back for confirmation rather than assuming it is dead.
		f.hinted.add(entry.idx)
		f.hasEmpty.set()
		return result, false
	}

	if wait := time.Until(entry.readyTime); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}

	result = fetchFn(ctx, rawURL)

	// Re-add to H unconditionally: if the back queue is now empty, that
	// will surface as an empty hint on the next Get for this idx.
	delay := f.policy.CrawlDelay(ctx, rawURL)
	f.heap.push(time.Now().Add(delay), entry.idx)

	return result, true
}

// Close stops the scheduler goroutine and releases heap waiters.
func (f *Frontier[R]) Close() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
		f.heap.close()
	})
	f.wg.Wait()
}

// schedulerLoop is the single dedicated scheduler thread described in
// spec 4.3. It is the only goroutine permitted to mutate M (hostToIdx /
// idxToHost) and I (inactive); every other goroutine only ever touches F,
// B[idx], H, and E.
func (f *Frontier[R]) schedulerLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		f.hasEmpty.clear()
		f.resolveHintedEmpty()
		f.drainFrontQueue()

		if len(f.inactive) == len(f.back) {
			select {
			case <-time.After(schedulerIdleSleep):
			case <-f.stopCh:
				return
			}
			continue
		}

		select {
		case <-f.hasEmpty.ch:
		case <-time.After(schedulerIdleSleep):
			// Bounded wait even without a signal, so Close is observed
			// promptly instead of blocking indefinitely on an idle crawl.
		case <-f.stopCh:
			return
		}
	}
}

// resolveHintedEmpty drains E and, for each hinted idx, either confirms
// the back queue is empty (moving it to I and erasing M) or refutes the
// hint (a false alarm — the scheduler had already pushed more URLs into
// it, so it is re-added to H).
func (f *Frontier[R]) resolveHintedEmpty() {
	for _, idx := range f.hinted.drain() {
		if f.back[idx].len() == 0 {
			f.inactive[idx] = struct{}{}
			host := f.idxToHost[idx]
			delete(f.idxToHost, idx)
			delete(f.hostToIdx, host)
			f.activeHosts.Add(-1)
			continue
		}
		// False alarm: the back queue gained work after the worker's
		// empty check. Put it back on the heap immediately.
		host := f.idxToHost[idx]
		delay := f.policy.CrawlDelay(context.Background(), host)
		f.heap.push(time.Now().Add(delay), idx)
	}
}

// drainFrontQueue routes URLs from F into per-host back queues while both
// F has work and an inactive back queue is available to bind.
func (f *Frontier[R]) drainFrontQueue() {
	for f.front.len() > 0 && len(f.inactive) > 0 {
		rawURL, ok := f.front.tryPop()
		if !ok {
			return
		}
		host := hostOf(rawURL)

		if idx, bound := f.hostToIdx[host]; bound {
			f.back[idx].push(rawURL)
			if f.hinted.removeIfPresent(idx) {
				// A racing empty-hint is refuted: this host is still live.
				f.heap.push(time.Now(), idx)
			}
			continue
		}

		idx := f.takeInactive()
		f.back[idx].push(rawURL)
		f.hostToIdx[host] = idx
		f.idxToHost[idx] = host
		f.activeHosts.Add(1)

		delay := f.policy.CrawlDelay(context.Background(), host)
		f.heap.push(time.Now().Add(delay), idx)
	}
}

// takeInactive removes and returns an arbitrary index from I. Caller must
// ensure I is non-empty (the scheduler goroutine).
func (f *Frontier[R]) takeInactive() int {
	for idx := range f.inactive {
		delete(f.inactive, idx)
		return idx
	}
	panic("frontier: takeInactive called with empty inactive set")
}

// hostOf derives the "{scheme}://{netloc}" host key from a normalized URL.
// Malformed URLs (which should not reach the frontier — the normalizer
// rejects them) fall back to the raw string so they still get a
// deterministic, if nonsensical, host bucket rather than crashing.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

// ActiveHosts reports the number of hosts currently bound to a back
// queue, for invariant tests (|M.activeHosts| + |I| == N).
func (f *Frontier[R]) ActiveHosts() int {
	return int(f.activeHosts.Load())
}

// Inactive reports the number of currently inactive back-queue indices.
// It is a point-in-time estimate derived from ActiveHosts and N — safe to
// call from any goroutine, same as ActiveHosts.
func (f *Frontier[R]) Inactive() int {
	return len(f.back) - f.ActiveHosts()
}

// BackQueueCount returns N, the total number of back queues.
func (f *Frontier[R]) BackQueueCount() int {
	return len(f.back)
}
