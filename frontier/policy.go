package frontier

import (
	"container/list"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// policyEntry is a parsed robots.txt ruleset for one host, or nil meaning
// "robots.txt unavailable; treat as permissive with the default delay."
type policyEntry struct {
	host  string
	rules *robotstxt.RobotsData // nil == none (permissive)
}

// PolicyCache is a per-host robots.txt cache, LRU-bounded, fetched on
// demand. A single mutex is held across hit, miss, fetch, and LRU update:
// this is intentional (spec 4.2) — it collapses duplicate simultaneous
// robots lookups for the same host and bounds peer pressure.
type PolicyCache struct {
	mu           sync.Mutex
	entries      map[string]*list.Element // host -> LRU element
	order        *list.List                // front = most recently used
	maxEntries   int
	client       *http.Client
	userAgent    string
	defaultDelay time.Duration
}

// NewPolicyCache creates a policy cache bounded to maxEntries hosts. The
// client should be configured with a tight timeout (spec recommends 1s)
// dedicated to robots.txt fetches.
func NewPolicyCache(maxEntries int, client *http.Client, userAgent string, defaultDelay time.Duration) *PolicyCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if client == nil {
		client = &http.Client{Timeout: time.Second}
	}
	return &PolicyCache{
		entries:      make(map[string]*list.Element, maxEntries),
		order:        list.New(),
		maxEntries:   maxEntries,
		client:       client,
		userAgent:    userAgent,
		defaultDelay: defaultDelay,
	}
}

// CanFetch reports whether rawURL may be fetched under the host's
// robots.txt rules. Errors fetching or parsing robots.txt are treated as
// permissive (fail-open): CanFetch returns true.
func (p *PolicyCache) CanFetch(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	host := hostKey(parsed)

	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.lookupLocked(ctx, host)
	if entry.rules == nil {
		return true
	}
	return entry.rules.TestAgent(parsed.Path, p.userAgent)
}

// CrawlDelay returns the crawl delay declared by rawURL's host's
// robots.txt, or the configured default if absent or unavailable.
func (p *PolicyCache) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return p.defaultDelay
	}
	host := hostKey(parsed)

	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.lookupLocked(ctx, host)
	if entry.rules == nil {
		return p.defaultDelay
	}
	if group := entry.rules.FindGroup(p.userAgent); group != nil && group.CrawlDelay > 0 {
		return group.CrawlDelay
	}
	return p.defaultDelay
}

// lookupLocked returns the cached policyEntry for host, fetching and
// parsing robots.txt on a miss. Caller must hold p.mu.
func (p *PolicyCache) lookupLocked(ctx context.Context, host string) *policyEntry {
	if elem, ok := p.entries[host]; ok {
		p.order.MoveToFront(elem)
		return elem.Value.(*policyEntry)
	}

	entry := &policyEntry{host: host, rules: p.fetchRobots(ctx, host)}

	if p.order.Len() >= p.maxEntries {
		oldest := p.order.Back()
		if oldest != nil {
			p.order.Remove(oldest)
			delete(p.entries, oldest.Value.(*policyEntry).host)
		}
	}
	p.entries[host] = p.order.PushFront(entry)
	return entry
}

// fetchRobots fetches and parses {host}/robots.txt, returning nil on any
// failure (network error, any non-2xx status, or parse error) — nil is the
// "none" sentinel meaning permissive with default delay.
func (p *PolicyCache) fetchRobots(ctx context.Context, host string) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s/robots.txt", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	rules, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil || rules == nil {
		return nil
	}
	return rules
}

// Len reports the current number of cached hosts, for LRU-bound tests.
func (p *PolicyCache) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// hostKey derives the "{scheme}://{netloc}" host key from a parsed URL.
func hostKey(u *url.URL) string {
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
