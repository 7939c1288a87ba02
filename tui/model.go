// Package tui provides the Bubble Tea terminal UI for the crawler,
// displaying live frontier progress and a styled summary once the
// target page count has been archived.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mercatorcrawl/frontier/crawler"
	"github.com/mercatorcrawl/frontier/report"
)

// Model is the Bubble Tea model for the crawl TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	pool       *crawler.Pool
	spinner    spinner.Model
	progressCh <-chan crawler.CrawlEvent
	started    time.Time

	checked  int
	archived int
	target   int
	current  string
	host     string
	quitting bool
	done     bool
	summary  report.Summary
	err      error
	width    int
}

// NewModel creates a TUI model wired to the given pool and progress channel.
func NewModel(ctx context.Context, cancel context.CancelFunc, pool *crawler.Pool, progressCh <-chan crawler.CrawlEvent) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		pool:       pool,
		spinner:    spin,
		progressCh: progressCh,
		started:    time.Now(),
	}
}

// Init starts the spinner, the crawl, and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCrawl(), waitForProgress(m.progressCh))
}

// startCrawl returns a tea.Cmd that runs the worker pool and sends CrawlDoneMsg.
func (m Model) startCrawl() tea.Cmd {
	return func() tea.Msg {
		err := m.pool.Run(m.ctx)
		if err != nil {
			err = fmt.Errorf("crawl: %w", err)
		}
		return CrawlDoneMsg{Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case CrawlProgressMsg:
		m.checked = msg.Checked
		m.archived = msg.Archived
		m.target = msg.Target
		m.current = msg.URL
		m.host = msg.Host
		return m, waitForProgress(m.progressCh)

	case CrawlDoneMsg:
		m.done = true
		m.err = msg.Err
		m.summary = report.Summary{
			Checked:  m.pool.Checked(),
			Archived: m.pool.Archived(),
			Duration: time.Since(m.started),
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.err == nil {
		return RenderSummary(m.summary)
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return renderProgress(m.spinner.View(), m.checked, m.archived, m.target, m.host)
}

// Summary returns the completed crawl's summary for output formatting.
func (m Model) Summary() report.Summary {
	return m.summary
}

// Failed reports whether the crawl ended in an error rather than
// reaching its target.
func (m Model) Failed() bool {
	return m.err != nil
}
