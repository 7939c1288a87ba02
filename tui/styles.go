package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mercatorcrawl/frontier/report"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	hostStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// RenderSummary produces a Lip Gloss styled summary of a completed crawl.
func RenderSummary(s report.Summary) string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("Archived %d pages", s.Archived)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"Checked %d URLs in %s",
		s.Checked,
		s.Duration.Round(1_000_000), // round to ms
	)))
	b.WriteString("\n")

	return b.String()
}

// renderProgress renders the in-flight status line shown while a crawl
// is still running.
func renderProgress(spinnerView string, checked, archived, target int, host string) string {
	goal := fmt.Sprintf("%d", target)
	if target <= 0 {
		goal = "unbounded"
	}
	return fmt.Sprintf("%s %s\n%s\n",
		spinnerView,
		titleStyle.Render(fmt.Sprintf("archived %d/%s, checked %d", archived, goal, checked)),
		dimStyle.Render("  "+hostStyle.Render(host)),
	)
}
