package crawler

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// PressureLevel indicates how close the pool is to its soft memory limit.
type PressureLevel int

const (
	// PressureNormal: heap usage is comfortably under the per-worker
	// budget.
	PressureNormal PressureLevel = iota
	// PressureElevated: heap usage is eating into the pool's slack; new
	// fetches proceed after a short pause (throttleForMemory's
	// elevatedPause).
	PressureElevated
	// PressureSevere: heap usage is close enough to the limit that a
	// worker should pause before pulling another page body into memory.
	PressureSevere
)

// LoadMonitor watches heap usage against a soft limit and reports
// PressureLevel, using runtime/debug.SetMemoryLimit (Go 1.19+) so the
// runtime itself also leans on GC more aggressively as usage climbs.
//
// Its elevated/severe thresholds narrow as the worker pool grows: each
// concurrent worker can be holding one full page body in memory at once
// (the archive write in crawler/worker.go happens after the whole body
// is read), so the same heap-usage percentage represents more
// simultaneously in-flight pages in a larger pool. A monitor backing a
// single-worker pool can safely run closer to its limit before the pool
// needs to react.
type LoadMonitor struct {
	mu          sync.RWMutex
	limitBytes  int64
	elevatedPct float64
	severePct   float64
	callback    func(level PressureLevel)
	lastLevel   PressureLevel
}

// NewLoadMonitor creates a load monitor for a pool of workers workers,
// with a soft heap limit of limitMB.
func NewLoadMonitor(limitMB int64, workers int) *LoadMonitor {
	if workers < 1 {
		workers = 1
	}
	limitBytes := limitMB * 1024 * 1024
	debug.SetMemoryLimit(limitBytes)

	return &LoadMonitor{
		limitBytes:  limitBytes,
		elevatedPct: thresholdFor(80, workers),
		severePct:   thresholdFor(95, workers),
		lastLevel:   PressureNormal,
	}
}

// thresholdFor narrows base by 1.5 percentage points per worker beyond
// the first, floored at half of base so the threshold never collapses
// to uselessness for a very large pool.
func thresholdFor(base float64, workers int) float64 {
	narrowed := base - 1.5*float64(workers-1)
	floor := base / 2
	if narrowed < floor {
		return floor
	}
	return narrowed
}

// Check reports current heap usage against the limit and the resulting
// pressure level. Call periodically from the worker loop's throttle
// point.
func (m *LoadMonitor) Check() (usedPercent float64, level PressureLevel) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	usedBytes := float64(memStats.HeapAlloc)

	m.mu.RLock()
	limitBytes := float64(m.limitBytes)
	elevatedPct := m.elevatedPct
	severePct := m.severePct
	m.mu.RUnlock()

	if limitBytes <= 0 {
		return 0, PressureNormal
	}

	usedPercent = (usedBytes / limitBytes) * 100

	switch {
	case usedPercent >= severePct:
		level = PressureSevere
	case usedPercent >= elevatedPct:
		level = PressureElevated
	default:
		level = PressureNormal
	}

	m.mu.RLock()
	lastLevel := m.lastLevel
	callback := m.callback
	m.mu.RUnlock()

	if level != lastLevel && callback != nil {
		m.mu.Lock()
		m.lastLevel = level
		m.mu.Unlock()
		callback(level)
	}

	return usedPercent, level
}

// SetPressureCallback registers a callback invoked whenever the pressure
// level changes.
func (m *LoadMonitor) SetPressureCallback(cb func(level PressureLevel)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// SetLimit updates the soft memory limit in bytes.
func (m *LoadMonitor) SetLimit(limitBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limitBytes = limitBytes
	debug.SetMemoryLimit(limitBytes)
}
