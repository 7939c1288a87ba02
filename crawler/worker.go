package crawler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mercatorcrawl/frontier/archive"
	"github.com/mercatorcrawl/frontier/frontier"
	"github.com/mercatorcrawl/frontier/report"
	"github.com/mercatorcrawl/frontier/urlutil"
	"golang.org/x/sync/errgroup"
)

const (
	// elevatedPause is the total pool-wide pause (divided across
	// cfg.Workers) applied when the load monitor reports PressureElevated.
	elevatedPause = 100 * time.Millisecond
	// severePause is the total pool-wide pause applied at PressureSevere.
	severePause = 500 * time.Millisecond
)

// Pool runs cfg.Workers fetch workers against a Frontier until Target
// pages have been archived. Only a failed archive write is fatal (spec
// 7); every per-URL failure just falls out of the worker loop uncounted.
type Pool struct {
	cfg      Config
	frontier *frontier.Frontier[*Response]
	archiver *archive.Writer
	limiter  *GlobalThrottle
	memory   *LoadMonitor
	fetchFn  func(ctx context.Context, url string) *Response
	events   chan<- CrawlEvent

	mu       sync.Mutex
	checked  int
	archived int
}

// NewPool wires a Pool from its dependencies. events may be nil if the
// caller doesn't want progress notifications (e.g. non-interactive runs).
func NewPool(cfg Config, fr *frontier.Frontier[*Response], policy *frontier.PolicyCache, archiver *archive.Writer, events chan<- CrawlEvent) *Pool {
	limiter := NewGlobalThrottle(cfg.RateLimit, cfg.RequestTimeout/2, cfg.Workers)
	client := &http.Client{Timeout: cfg.RequestTimeout}

	return &Pool{
		cfg:      cfg,
		frontier: fr,
		archiver: archiver,
		limiter:  limiter,
		memory:   NewLoadMonitor(cfg.MemoryLimitMB, cfg.Workers),
		fetchFn:  buildFetchFn(policy, client, cfg.RetryPolicy, limiter, cfg.UserAgent),
		events:   events,
	}
}

// Run starts cfg.Workers worker goroutines and blocks until Target pages
// have been archived or ctx is cancelled. The only error a worker
// propagates is an archive write failure; every other fetch/parse
// failure is swallowed and the worker moves to the next URL.
func (p *Pool) Run(ctx context.Context) error {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.workerLoop(ctx)
		})
	}
	return g.Wait()
}

// workerLoop repeatedly calls frontier.Get, classifies the result per
// spec 4.4's worker contract, and either follows a redirect, discards a
// non-HTML response, or archives and expands outlinks from an HTML page.
func (p *Pool) workerLoop(ctx context.Context) error {
	for {
		if p.targetReached() {
			return nil
		}

		p.throttleForMemory()

		resp, ok := p.frontier.Get(ctx, p.fetchFn)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			continue
		}

		p.recordChecked()

		if resp == nil {
			continue
		}

		if isRedirectStatus(resp.Status) {
			p.followRedirect(resp)
			continue
		}

		if !isHTMLContentType(resp.Header) {
			continue
		}

		archived := p.tryArchive(resp)
		if !archived {
			continue
		}

		if err := p.archiver.Write(resp.URL, resp.Status, resp.Header, resp.Body); err != nil {
			return err
		}

		if p.cfg.Verbose {
			_ = report.WriteDebugLine(os.Stdout, resp.URL, resp.Title, resp.Text)
		}

		p.emit(resp.URL)
		p.expandOutlinks(resp)
	}
}

// followRedirect normalizes a redirect's Location header against the
// response URL and re-enqueues it, uncounted.
func (p *Pool) followRedirect(resp *Response) {
	location := resp.Header.Get("Location")
	if location == "" {
		return
	}
	next := urlutil.NormalizeOrEmpty(resp.URL, location)
	if next == "" {
		return
	}
	p.frontier.Put(next)
}

// expandOutlinks extracts every outlink from an archived HTML page and
// enqueues it.
func (p *Pool) expandOutlinks(resp *Response) {
	base, err := url.Parse(resp.URL)
	if err != nil {
		return
	}
	for _, link := range ExtractLinks(bytes.NewReader(resp.Body), base) {
		p.frontier.Put(link)
	}
}

// tryArchive re-checks the target under the same mutex as the increment,
// so two workers racing to archive the last page or two can't both
// succeed past Target.
func (p *Pool) tryArchive(resp *Response) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.archived >= p.cfg.Target {
		return false
	}
	p.archived++
	return true
}

func (p *Pool) recordChecked() {
	p.mu.Lock()
	p.checked++
	p.mu.Unlock()
}

func (p *Pool) targetReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archived >= p.cfg.Target
}

func (p *Pool) emit(url string) {
	if p.events == nil {
		return
	}
	p.mu.Lock()
	evt := CrawlEvent{URL: url, Host: urlutil.HostOf(url), Checked: p.checked, Target: p.cfg.Target, Archived: p.archived, Archive: true}
	p.mu.Unlock()

	select {
	case p.events <- evt:
	default:
	}
}

// throttleForMemory slows this worker down when the load monitor reports
// elevated or severe pressure, giving the GC room to catch up before the
// worker pulls another page body into memory. The sleep is split across
// cfg.Workers so a large pool backs off by roughly the same aggregate
// amount of wall-clock time as a small one, rather than each additional
// worker compounding the total pause.
func (p *Pool) throttleForMemory() {
	if p.memory == nil {
		return
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	_, level := p.memory.Check()
	switch level {
	case PressureSevere:
		time.Sleep(severePause / time.Duration(workers))
	case PressureElevated:
		time.Sleep(elevatedPause / time.Duration(workers))
	}
}

// Checked returns the number of URLs dispatched through the frontier.
func (p *Pool) Checked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checked
}

// Archived returns the number of pages archived so far.
func (p *Pool) Archived() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archived
}

func isHTMLContentType(header http.Header) bool {
	return strings.Contains(strings.ToLower(header.Get("Content-Type")), "text/html")
}
