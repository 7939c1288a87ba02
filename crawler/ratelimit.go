package crawler

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// globalRateFloor is the minimum aggregate rate in requests per
	// second across the whole worker pool. It does not scale with
	// worker count: even a pool of one worker must make forward
	// progress, and a stalled host should never pull the shared
	// ceiling to zero.
	globalRateFloor = 5.0

	// perWorkerCeiling is how much aggregate rate each additional
	// worker goroutine is allowed to add to the pool-wide ceiling,
	// on top of the one-worker baseline below. More workers fetching
	// concurrently can sustain more aggregate throughput before the
	// shared limiter itself becomes the bottleneck ahead of any
	// single host's politeness delay.
	perWorkerCeiling = 20.0

	// baseCeiling is the ceiling for a single-worker pool.
	baseCeiling = 100.0

	// maxCeiling bounds how far perWorkerCeiling scaling can push the
	// ceiling for a large worker pool.
	maxCeiling = 300.0

	// emaAlpha is the smoothing factor for the exponential moving
	// average of observed RTTs. Lower values smooth more aggressively.
	emaAlpha = 0.2

	// recoveryFactor is the per-good-RTT multiplicative rate increase
	// once observed latency runs ahead of targetRTT.
	recoveryFactor = 1.1

	// backoffFloor bounds how much a single bad RTT observation can
	// cut the rate in one step, so one slow response can't crash the
	// pool's throughput to the floor in a single observation.
	backoffFloor = 0.5
)

// GlobalThrottle is the pool-wide rate ceiling layered above per-host
// politeness (the Frontier's politeness heap already spaces out requests
// to any one host; this limiter caps the crawl's combined request rate
// across every host the pool is fetching from concurrently, so a crawl
// spanning many fast hosts doesn't saturate the operator's link even
// though each host individually is being crawled politely). It widens
// and narrows the pool-wide ceiling from an exponential moving average
// of observed RTT, so a run of slow responses throttles every worker
// together rather than only the worker that observed them.
type GlobalThrottle struct {
	limiter   *rate.Limiter
	targetRTT time.Duration
	ceiling   float64
	mu        sync.RWMutex

	emaRTT      time.Duration
	currentRate float64
	disabled    bool
}

// NewGlobalThrottle creates a pool-wide throttle for a pool of the given
// worker count, starting at initialRPS and adjusting toward targetRTT.
func NewGlobalThrottle(initialRPS int, targetRTT time.Duration, workers int) *GlobalThrottle {
	ceiling := ceilingFor(workers)
	clamped := clampToRange(float64(initialRPS), globalRateFloor, ceiling)

	return &GlobalThrottle{
		limiter:     rate.NewLimiter(rate.Limit(clamped), int(clamped)),
		targetRTT:   targetRTT,
		ceiling:     ceiling,
		currentRate: clamped,
		emaRTT:      targetRTT,
	}
}

// ceilingFor returns the pool-wide rate ceiling for a pool of workers
// goroutines: one worker gets baseCeiling, each additional worker adds
// perWorkerCeiling, capped at maxCeiling.
func ceilingFor(workers int) float64 {
	if workers < 1 {
		workers = 1
	}
	ceiling := baseCeiling + perWorkerCeiling*float64(workers-1)
	if ceiling > maxCeiling {
		ceiling = maxCeiling
	}
	return ceiling
}

// Wait blocks until the shared limiter admits the next request or ctx is
// cancelled. Safe to call from every worker goroutine concurrently.
func (g *GlobalThrottle) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// ObserveRTT folds one request's round-trip time into the EMA and
// re-derives the pool-wide rate: slower than targetRTT narrows it
// (bounded by backoffFloor per step), faster widens it gradually
// (recoveryFactor per observation).
func (g *GlobalThrottle) ObserveRTT(rtt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disabled {
		return
	}

	g.emaRTT = time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(g.emaRTT))

	ratio := float64(g.targetRTT) / float64(g.emaRTT)

	var next float64
	if ratio < 1 {
		proposed := g.currentRate * ratio
		floor := g.currentRate * backoffFloor
		if proposed < floor {
			next = floor
		} else {
			next = proposed
		}
	} else {
		next = g.currentRate * recoveryFactor
	}

	next = clampToRange(next, globalRateFloor, g.ceiling)
	if math.Abs(next-g.currentRate) > 0.1 {
		g.currentRate = next
		g.limiter.SetLimit(rate.Limit(next))
		g.limiter.SetBurst(int(math.Ceil(next)))
	}
}

// SetRate pins the pool-wide rate to rps (clamped to the pool's
// [globalRateFloor, ceiling] range) and disables ObserveRTT adjustments
// until EnableAdaptation is called. The -rate-limit flag does not call
// it; that flag only sets the initial rate passed to NewGlobalThrottle.
func (g *GlobalThrottle) SetRate(rps int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	clamped := clampToRange(float64(rps), globalRateFloor, g.ceiling)
	g.currentRate = clamped
	g.disabled = true
	g.limiter.SetLimit(rate.Limit(clamped))
	g.limiter.SetBurst(int(math.Ceil(clamped)))
}

// CurrentRate returns the pool-wide rate, in requests per second.
func (g *GlobalThrottle) CurrentRate() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return int(math.Round(g.currentRate))
}

// EnableAdaptation resumes ObserveRTT-driven adjustment after SetRate
// pinned the rate.
func (g *GlobalThrottle) EnableAdaptation() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disabled = false
}

// TargetRTT returns the RTT this throttle adjusts toward.
func (g *GlobalThrottle) TargetRTT() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.targetRTT
}

// CurrentEMA returns the current exponential moving average of observed
// RTTs.
func (g *GlobalThrottle) CurrentEMA() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.emaRTT
}

// clampToRange bounds v to [lo, hi].
func clampToRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
