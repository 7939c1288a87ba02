package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/mercatorcrawl/frontier/urlutil"
	"golang.org/x/net/html"
)

// ExtractLinks parses HTML from body and returns every normalized,
// deduplicated outlink. Per the link source contract, an empty or
// fragment-only href (pointing back at the current page) is skipped
// rather than resolved to baseURL, and any href urlutil.Normalize rejects
// (non-HTTP scheme, malformed) is silently dropped.
func ExtractLinks(body io.Reader, baseURL *url.URL) []string {
	tokenizer := html.NewTokenizer(body)
	seen := make(map[string]bool)
	var links []string
	base := baseURL.String()

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") {
					continue
				}
				normalized := urlutil.NormalizeOrEmpty(base, href)
				if normalized == "" || seen[normalized] {
					continue
				}
				seen[normalized] = true
				links = append(links, normalized)
			}
		}
	}
}

// ExtractTitleAndText pulls a short debug summary out of an HTML page:
// the title text, and the first 20 whitespace-separated tokens of the
// body text (skipping script/style content). Either defaults to "N/A"
// when the page has none, matching original_source/Crawler.py's
// print_request.
func ExtractTitleAndText(body []byte) (title, text string) {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))

	var titleBuf strings.Builder
	var words []string
	var inTitle, inBody, skipping bool

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			title = "N/A"
			if titleBuf.Len() > 0 {
				title = strings.TrimSpace(titleBuf.String())
			}
			text = "N/A"
			if len(words) > 0 {
				text = strings.Join(words, " ")
			}
			return title, text

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				inTitle = true
			case "body":
				inBody = true
			case "script", "style":
				skipping = true
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				inTitle = false
			case "script", "style":
				skipping = false
			}

		case html.TextToken:
			if skipping {
				continue
			}
			if inTitle {
				titleBuf.WriteString(tokenizer.Token().Data)
				continue
			}
			if inBody && len(words) < 20 {
				words = append(words, strings.Fields(tokenizer.Token().Data)...)
				if len(words) > 20 {
					words = words[:20]
				}
			}
		}
	}
}
