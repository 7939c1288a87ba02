package crawler

import (
	"errors"
	"time"
)

var (
	errPagesPerFile   = errors.New("crawler: PagesPerFile must be > 0")
	errNegativeTarget = errors.New("crawler: Target must be >= 0")
)

// Config holds crawler configuration, matching spec 6's recognized
// configuration options.
type Config struct {
	Seeds []string // initial URLs, normalized and V.add'ed before enqueue

	Target      int // crawl until this many text/html pages are archived
	Workers     int // W: number of fetch worker goroutines
	FilterRatio int // sizing multiplier for the Approximate Set: target * FilterRatio
	FilterError float64

	PagesPerFile int           // archive rotation threshold
	OutDir       string        // directory archive files are written to
	DefaultDelay time.Duration // used when robots.txt lacks a crawl-delay or is unreachable

	PolicyCacheSize int // LRU bound for the policy cache
	Verbose         bool

	UserAgent      string
	RateLimit      int           // initial adaptive rate, requests/second
	RequestTimeout time.Duration // HEAD/GET timeout
	RobotsTimeout  time.Duration // robots.txt fetch timeout
	RetryPolicy    RetryPolicy

	MemoryLimitMB int64 // soft memory limit fed to the Memory Watcher
}

// DefaultConfig returns a Config with the defaults spec 6 lists.
func DefaultConfig() Config {
	return Config{
		Target:          0,
		Workers:         10,
		FilterRatio:     1000,
		FilterError:     0.01,
		PagesPerFile:    1000,
		OutDir:          ".",
		DefaultDelay:    100 * time.Millisecond,
		PolicyCacheSize: 1000,
		UserAgent:       "mercator-frontier/1.0",
		RateLimit:       10,
		RequestTimeout:  5 * time.Second,
		RobotsTimeout:   time.Second,
		RetryPolicy:     DefaultRetryPolicy(),
		MemoryLimitMB:   1024,
	}
}

// Validate checks the invalid-configuration cases spec 7 calls fatal at
// startup: pagesPerFile <= 0, target < 0.
func (c Config) Validate() error {
	if c.PagesPerFile <= 0 {
		return errPagesPerFile
	}
	if c.Target < 0 {
		return errNegativeTarget
	}
	return nil
}
