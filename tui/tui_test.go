package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mercatorcrawl/frontier/crawler"
	"github.com/mercatorcrawl/frontier/report"
)

func TestNewModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCh := make(chan crawler.CrawlEvent, 10)
	model := NewModel(ctx, cancel, nil, progressCh)

	if model.ctx != ctx {
		t.Error("expected ctx to be stored in model")
	}
	if model.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if model.progressCh == nil {
		t.Error("expected progressCh to be stored in model")
	}
	if model.checked != 0 || model.archived != 0 {
		t.Error("expected initial counters to be zero")
	}
	if model.done {
		t.Error("expected done to be false initially")
	}
}

func TestRenderSummary(t *testing.T) {
	output := RenderSummary(report.Summary{Checked: 10, Archived: 4, Duration: 2 * time.Second})
	if !containsSubstring(output, "Archived 4 pages") {
		t.Errorf("expected archived count in output, got: %s", output)
	}
	if !containsSubstring(output, "10") {
		t.Errorf("expected checked count in output, got: %s", output)
	}
}

func TestUpdate_CrawlProgressMsg(t *testing.T) {
	model := Model{
		progressCh: make(chan crawler.CrawlEvent, 10),
	}

	msg := CrawlProgressMsg{Checked: 5, Archived: 2, Target: 10, URL: "https://example.com/page", Host: "https://example.com"}
	updatedModel, cmd := model.Update(msg)
	updated := updatedModel.(Model)

	if updated.checked != 5 {
		t.Errorf("expected checked=5, got %d", updated.checked)
	}
	if updated.archived != 2 {
		t.Errorf("expected archived=2, got %d", updated.archived)
	}
	if updated.current != "https://example.com/page" {
		t.Errorf("expected current URL to be set, got %s", updated.current)
	}
	if cmd == nil {
		t.Error("expected non-nil cmd to re-subscribe to progress channel")
	}
}

func TestUpdate_SpinnerTickMsg(t *testing.T) {
	model := Model{}
	updatedModel, _ := model.Update(spinner.TickMsg{})
	_ = updatedModel.(Model) // should not panic
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	model := Model{}
	updatedModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := updatedModel.(Model)

	if updated.width != 120 {
		t.Errorf("expected width=120, got %d", updated.width)
	}
}

func TestView_InProgress(t *testing.T) {
	model := Model{
		checked:  3,
		archived: 1,
		target:   10,
		current:  "https://example.com/checking",
	}
	output := model.View()
	if !strings.Contains(output, "archived") {
		t.Errorf("expected 'archived' in progress view, got: %s", output)
	}
	if !strings.Contains(output, "3") {
		t.Errorf("expected checked count in view, got: %s", output)
	}
}

func TestView_DoneWithSummary(t *testing.T) {
	model := Model{
		done:    true,
		summary: report.Summary{Checked: 5, Archived: 2, Duration: time.Second},
	}
	output := model.View()
	if !strings.Contains(output, "Archived 2 pages") {
		t.Errorf("expected summary in done view, got: %s", output)
	}
}

func TestView_DoneWithError(t *testing.T) {
	model := Model{
		done: true,
		err:  context.Canceled,
	}
	output := model.View()
	if !strings.Contains(output, "Error") {
		t.Errorf("expected error message in done view, got: %s", output)
	}
}

// containsSubstring checks for a substring in a string that may contain ANSI codes.
func containsSubstring(haystack, needle string) bool {
	return len(haystack) > 0 && len(needle) > 0 &&
		strings.Contains(haystack, needle)
}
