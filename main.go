// Package main provides the frontier crawler's CLI entrypoint.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mercatorcrawl/frontier/archive"
	"github.com/mercatorcrawl/frontier/crawler"
	"github.com/mercatorcrawl/frontier/frontier"
	"github.com/mercatorcrawl/frontier/report"
	"github.com/mercatorcrawl/frontier/tui"
	"github.com/mercatorcrawl/frontier/urlutil"
)

// cliFlags holds parsed command-line flags.
type cliFlags struct {
	seedsFile       string
	target          int
	verbose         bool
	workers         int
	rateLimit       int
	userAgent       string
	outDir          string
	policyCacheSize int
	defaultDelay    time.Duration
	filterRatio     int
	filterError     float64
	pagesPerFile    int
	memoryLimitMB   int64
}

// parseFlags parses command-line flags and returns the parsed values.
func parseFlags() *cliFlags {
	defaults := crawler.DefaultConfig()
	opts := &cliFlags{}

	flag.StringVar(&opts.seedsFile, "s", "", "path to a file of seed URLs, one per line (required)")
	flag.IntVar(&opts.target, "n", -1, "number of pages to archive before stopping (required)")
	flag.BoolVar(&opts.verbose, "d", false, "print a debug line for every archived page")

	flag.IntVar(&opts.workers, "workers", defaults.Workers, "number of fetch worker goroutines")
	flag.IntVar(&opts.rateLimit, "rate-limit", defaults.RateLimit, "initial requests per second")
	flag.StringVar(&opts.userAgent, "user-agent", defaults.UserAgent, "HTTP User-Agent header")
	flag.StringVar(&opts.outDir, "out", defaults.OutDir, "directory archive files are written to")
	flag.IntVar(&opts.policyCacheSize, "policy-cache-size", defaults.PolicyCacheSize, "max hosts held in the robots.txt policy cache")
	flag.DurationVar(&opts.defaultDelay, "default-delay", defaults.DefaultDelay, "crawl delay used when robots.txt has none")
	flag.IntVar(&opts.filterRatio, "filter-ratio", defaults.FilterRatio, "Approximate Set sizing multiplier (target * ratio)")
	flag.Float64Var(&opts.filterError, "filter-error", defaults.FilterError, "Approximate Set target false-positive rate")
	flag.IntVar(&opts.pagesPerFile, "pages-per-file", defaults.PagesPerFile, "archive records per rotation file")
	flag.Int64Var(&opts.memoryLimitMB, "memory-limit-mb", defaults.MemoryLimitMB, "soft memory limit fed to the memory watcher")

	flag.Parse()
	return opts
}

// buildConfig turns parsed flags into a crawler.Config, validated per
// spec 7 (pagesPerFile <= 0 or target < 0 are fatal at startup).
func buildConfig(opts *cliFlags) (crawler.Config, error) {
	if opts.seedsFile == "" {
		return crawler.Config{}, fmt.Errorf("-s <seeds-file> is required")
	}
	if opts.target < 0 {
		return crawler.Config{}, fmt.Errorf("-n <target> is required and must be >= 0")
	}

	seeds, err := readSeeds(opts.seedsFile)
	if err != nil {
		return crawler.Config{}, fmt.Errorf("read seeds file: %w", err)
	}

	cfg := crawler.DefaultConfig()
	cfg.Seeds = seeds
	cfg.Target = opts.target
	cfg.Verbose = opts.verbose
	cfg.Workers = opts.workers
	cfg.RateLimit = opts.rateLimit
	cfg.UserAgent = opts.userAgent
	cfg.OutDir = opts.outDir
	cfg.PolicyCacheSize = opts.policyCacheSize
	cfg.DefaultDelay = opts.defaultDelay
	cfg.FilterRatio = opts.filterRatio
	cfg.FilterError = opts.filterError
	cfg.PagesPerFile = opts.pagesPerFile
	cfg.MemoryLimitMB = opts.memoryLimitMB

	if err := cfg.Validate(); err != nil {
		return crawler.Config{}, err
	}

	return cfg, nil
}

// readSeeds reads one URL per line from path, skipping blank lines and
// lines starting with '#'.
func readSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%s contains no seed URLs", path)
	}
	return seeds, nil
}

// buildPool wires the Approximate Set, Policy Cache, Frontier, Archive
// Writer, and Pool for one crawl run.
func buildPool(cfg crawler.Config, events chan<- crawler.CrawlEvent) (*crawler.Pool, func(), error) {
	setSize := cfg.Target * cfg.FilterRatio
	if setSize <= 0 {
		setSize = cfg.FilterRatio
	}
	visited, err := frontier.NewApproximateSet(setSize, cfg.FilterError)
	if err != nil {
		return nil, nil, fmt.Errorf("create approximate set: %w", err)
	}

	robotsClient := &http.Client{Timeout: cfg.RobotsTimeout}
	policy := frontier.NewPolicyCache(cfg.PolicyCacheSize, robotsClient, cfg.UserAgent, cfg.DefaultDelay)

	fr := frontier.New[*crawler.Response](frontier.Config{Workers: cfg.Workers}, visited, policy)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fr.Close()
		_ = visited.Close()
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	archiver, err := archive.NewWriter(cfg.OutDir, "pages", cfg.PagesPerFile)
	if err != nil {
		fr.Close()
		_ = visited.Close()
		return nil, nil, fmt.Errorf("create archive writer: %w", err)
	}

	pool := crawler.NewPool(cfg, fr, policy, archiver, events)

	for _, seed := range cfg.Seeds {
		if normalized := urlutil.NormalizeOrEmpty("", seed); normalized != "" {
			fr.Put(normalized)
		}
	}

	cleanup := func() {
		_ = archiver.Close()
		fr.Close()
		_ = visited.Close()
	}

	return pool, cleanup, nil
}

func main() {
	opts := parseFlags()

	cfg, err := buildConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	events := make(chan crawler.CrawlEvent, 100)
	pool, cleanup, err := buildPool(cfg, events)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewModel(ctx, cancel, pool, events)
	program := tea.NewProgram(model)

	finalModel, err := program.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := finalModel.(tui.Model)
	if m.Failed() {
		os.Exit(1)
	}

	if err := report.WriteSummary(os.Stdout, m.Summary()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
