package crawler_test

import (
	"testing"

	"github.com/mercatorcrawl/frontier/crawler"
)

// TestLoadMonitorBasicCheck verifies that Check returns valid memory
// statistics and normal pressure with a reasonable memory limit.
func TestLoadMonitorBasicCheck(t *testing.T) {
	mw := crawler.NewLoadMonitor(1024, 4)

	usedPercent, level := mw.Check()

	if usedPercent < 0 || usedPercent > 100 {
		t.Errorf("usedPercent = %f, want between 0 and 100", usedPercent)
	}

	if level != crawler.PressureNormal {
		t.Errorf("level = %v, want PressureNormal", level)
	}
}

// TestLoadMonitorPressureLevels verifies that a tiny memory limit
// triggers elevated or severe pressure.
func TestLoadMonitorPressureLevels(t *testing.T) {
	mw := crawler.NewLoadMonitor(1, 4) // 1MB limit

	_, level := mw.Check()

	if level == crawler.PressureNormal {
		t.Error("expected pressure level > PressureNormal with 1MB limit")
	}
}

// TestLoadMonitorThresholdsNarrowWithWorkers verifies that a larger
// worker pool never reports a lower pressure level than a single-worker
// pool at the same real heap usage.
func TestLoadMonitorThresholdsNarrowWithWorkers(t *testing.T) {
	small := crawler.NewLoadMonitor(1024, 1)
	large := crawler.NewLoadMonitor(1024, 50)

	_, smallLevel := small.Check()
	_, largeLevel := large.Check()

	if largeLevel < smallLevel {
		t.Errorf("a 50-worker pool should never report a lower pressure level than a 1-worker pool at the same heap usage: got small=%v large=%v", smallLevel, largeLevel)
	}
}

// TestLoadMonitorCallback verifies that registering a callback with
// SetPressureCallback and then calling Check does not panic; whether the
// callback fires depends on the process's memory state.
func TestLoadMonitorCallback(t *testing.T) {
	mw := crawler.NewLoadMonitor(1024, 4)

	callbackCalled := false
	mw.SetPressureCallback(func(level crawler.PressureLevel) {
		callbackCalled = true
	})

	mw.Check()

	// Callback may or may not be called depending on memory state,
	// but SetPressureCallback should not panic.
	_ = callbackCalled
}

// TestLoadMonitorMultipleChecks verifies that repeated sequential Check
// calls are safe.
func TestLoadMonitorMultipleChecks(t *testing.T) {
	mw := crawler.NewLoadMonitor(1024, 4)

	for i := 0; i < 10; i++ {
		_, level := mw.Check()
		_ = level
	}
}

// TestLoadMonitorSetLimit verifies that SetLimit and a subsequent Check
// do not panic.
func TestLoadMonitorSetLimit(t *testing.T) {
	mw := crawler.NewLoadMonitor(1024, 4)

	_, level1 := mw.Check()

	mw.SetLimit(2 * 1024 * 1024 * 1024)

	usedPercent, level2 := mw.Check()

	_ = usedPercent
	_ = level1
	_ = level2

	// Verify SetLimit doesn't panic and subsequent Check works. The
	// exact levels depend on actual process memory usage.
}
