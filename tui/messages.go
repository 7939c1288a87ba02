package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mercatorcrawl/frontier/crawler"
)

// CrawlProgressMsg reports progress toward the crawl's target page count.
type CrawlProgressMsg struct {
	Checked  int
	Archived int
	Target   int
	Host     string
	URL      string
}

// CrawlDoneMsg signals the pool has stopped, successfully or not.
type CrawlDoneMsg struct {
	Err error
}

// waitForProgress returns a tea.Cmd that reads one event from the
// progress channel. A closed channel yields a nil tea.Msg; CrawlDoneMsg
// (sent separately by startCrawl once Pool.Run returns) is what actually
// ends the program.
func waitForProgress(ch <-chan crawler.CrawlEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return CrawlProgressMsg{
			Checked:  evt.Checked,
			Archived: evt.Archived,
			Target:   evt.Target,
			Host:     evt.Host,
			URL:      evt.URL,
		}
	}
}
