package crawler

import (
	"net/url"
	"strings"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com")

	tests := []struct {
		name     string
		html     string
		expected []string
	}{
		{
			name:     "extracts absolute link",
			html:     `<a href="https://example.com/page">Link</a>`,
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "resolves relative link",
			html:     `<a href="/about">About</a>`,
			expected: []string{"https://example.com/about"},
		},
		{
			name:     "filters mailto scheme",
			html:     `<a href="mailto:user@example.com">Email</a>`,
			expected: nil,
		},
		{
			name:     "filters javascript scheme",
			html:     `<a href="javascript:void(0)">Click</a>`,
			expected: nil,
		},
		{
			name:     "skips empty href",
			html:     `<a href="">Empty</a>`,
			expected: nil,
		},
		{
			name:     "skips fragment-only href",
			html:     `<a href="#section">Jump</a>`,
			expected: nil,
		},
		{
			name: "extracts multiple links",
			html: `<a href="/page1">Page 1</a>
			       <a href="/page2">Page 2</a>
			       <a href="https://other.com">External</a>`,
			expected: []string{"https://example.com/page1", "https://example.com/page2", "https://other.com/"},
		},
		{
			name: "deduplicates within page",
			html: `<a href="/page">Link 1</a>
			       <a href="/page">Link 2</a>
			       <a href="/page">Link 3</a>`,
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "handles malformed HTML gracefully",
			html:     `<a href="/unclosed">Unclosed`,
			expected: []string{"https://example.com/unclosed"},
		},
		{
			name:     "resolves relative path without leading slash",
			html:     `<a href="contact">Contact</a>`,
			expected: []string{"https://example.com/contact"},
		},
		{
			name:     "filters ftp scheme",
			html:     `<a href="ftp://files.example.com">FTP</a>`,
			expected: nil,
		},
		{
			name:     "normalizes URLs (lowercases scheme/host, strips fragment)",
			html:     `<a href="https://Example.com/Page#section">Fragment</a>`,
			expected: []string{"https://example.com/Page"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := ExtractLinks(strings.NewReader(tt.html), baseURL)

			if len(links) != len(tt.expected) {
				t.Errorf("expected %d links, got %d: %v", len(tt.expected), len(links), links)
				return
			}
			for _, expected := range tt.expected {
				found := false
				for _, link := range links {
					if link == expected {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected link %q not found in results %v", expected, links)
				}
			}
		})
	}
}

func TestExtractLinksEmptyInput(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com")

	links := ExtractLinks(strings.NewReader(""), baseURL)
	if len(links) != 0 {
		t.Errorf("expected 0 links for empty input, got %d", len(links))
	}
}

func TestExtractTitleAndText(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantTitle string
		wantText  string
	}{
		{
			name:      "title and body text",
			html:      `<html><head><title>Example Page</title></head><body><p>Hello world this is a test</p></body></html>`,
			wantTitle: "Example Page",
			wantText:  "Hello world this is a test",
		},
		{
			name:      "missing title",
			html:      `<html><body><p>Just body text</p></body></html>`,
			wantTitle: "N/A",
			wantText:  "Just body text",
		},
		{
			name:      "missing body",
			html:      `<html><head><title>No Body</title></head></html>`,
			wantTitle: "No Body",
			wantText:  "N/A",
		},
		{
			name:      "script and style excluded from text",
			html:      `<html><body><script>ignoreMe();</script><style>.x{color:red}</style><p>Real content</p></body></html>`,
			wantTitle: "N/A",
			wantText:  "Real content",
		},
		{
			name: "text truncated to 20 tokens",
			html: `<html><body><p>one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone twentytwo</p></body></html>`,
			wantTitle: "N/A",
			wantText:  "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, text := ExtractTitleAndText([]byte(tt.html))
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
		})
	}
}
