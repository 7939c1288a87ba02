// Package report writes crawl progress output: a per-page debug JSON
// line when verbose mode is enabled, and a final summary once the crawl
// completes. Adapted from the teacher's result package (renamed: a
// frontier crawler's success metric is pages archived toward a target,
// not broken links found) and grounded on
// original_source/Crawler.py's print_request for the debug line shape.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DebugLine is one verbose per-page debug record, emitted as a single
// JSON object per archived page.
type DebugLine struct {
	URL       string `json:"URL"`
	Title     string `json:"Title"`
	Text      string `json:"Text"`
	Timestamp int64  `json:"Timestamp"`
}

// WriteDebugLine writes one DebugLine as JSON to w, stamped with the
// current time. title and text should already be capped/defaulted by
// the caller (crawler.ExtractTitleAndText uses "N/A" for either when the
// page has none).
func WriteDebugLine(w io.Writer, url, title, text string) error {
	enc := json.NewEncoder(w)
	line := DebugLine{URL: url, Title: title, Text: text, Timestamp: time.Now().Unix()}
	if err := enc.Encode(line); err != nil {
		return fmt.Errorf("write debug line for %s: %w", url, err)
	}
	return nil
}

// Summary is the final report for a completed crawl.
type Summary struct {
	Checked  int           // URLs dispatched through the frontier
	Archived int           // text/html pages successfully archived
	Duration time.Duration // wall-clock time from start until the crawl stopped
}

// WriteSummary writes a short human-readable summary to w.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Checked %d URLs, archived %d pages in %s\n",
		s.Checked, s.Archived, s.Duration.Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
