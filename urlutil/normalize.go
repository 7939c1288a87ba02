// Package urlutil canonicalizes URLs and rejects malformed or
// non-HTTP(S) inputs, so the frontier only ever sees a single normalized
// form for a given resource.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// structuralPattern rejects non-http(s) schemes and unparseable or
// missing authorities before the more expensive canonicalization runs.
// Ported in spirit (not literal text) from original_source/Crawler.py's
// url_regex, itself credited there to Django's URL validator.
var structuralPattern = regexp.MustCompile(
	`(?i)^https?://` + // scheme
		`(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?` + // host/domain
		`(?::\d+)?` + // optional port
		`(?:[/?#]\S*)?$`, // optional path/query/fragment
)

// trackingParams lists query keys stripped during canonicalization,
// matching spec 3's "tracking parameters removed" requirement.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"ref":          {},
	"mc_cid":       {},
	"mc_eid":       {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize resolves link against base (when link is relative), rejects
// non-HTTP(S) or malformed results, and canonicalizes what remains:
// lowercased scheme and host, default ports elided, fragment stripped,
// tracking query parameters removed, remaining query parameters sorted.
// Returns an error on any failure; callers that want the empty-string
// sentinel from spec 4.5 should use NormalizeOrEmpty.
func Normalize(base, link string) (string, error) {
	resolved, err := resolve(base, link)
	if err != nil {
		return "", err
	}

	if !structuralPattern.MatchString(resolved) {
		return "", fmt.Errorf("urlutil: %q rejected by structural filter", resolved)
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return "", fmt.Errorf("urlutil: parse %q: %w", resolved, err)
	}
	if parsed.Host == "" {
		return "", errors.New("urlutil: URL has no host")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("urlutil: unsupported scheme %q", scheme)
	}
	parsed.Scheme = scheme
	parsed.Host = lowerHost(parsed.Host, scheme)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.Path == "" {
		parsed.Path = "/"
	}

	parsed.RawQuery = canonicalQuery(parsed.Query())

	return parsed.String(), nil
}

// NormalizeOrEmpty is Normalize, collapsing any error to the empty
// string sentinel spec 4.5 uses for "skip this link."
func NormalizeOrEmpty(base, link string) string {
	normalized, err := Normalize(base, link)
	if err != nil {
		return ""
	}
	return normalized
}

// resolve resolves link against base per RFC 3986 when link is relative;
// an empty base treats link as already-absolute.
func resolve(base, link string) (string, error) {
	if link == "" {
		return "", errors.New("urlutil: empty link")
	}
	if base == "" {
		return link, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("urlutil: parse base: %w", err)
	}
	linkURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("urlutil: parse link: %w", err)
	}
	return baseURL.ResolveReference(linkURL).String(), nil
}

// lowerHost lowercases the host portion of a URL authority and elides the
// scheme's default port, preserving a non-default port verbatim.
func lowerHost(host, scheme string) string {
	host = strings.ToLower(host)
	hostname, port, found := strings.Cut(host, ":")
	if !found {
		return host
	}
	if port == defaultPorts[scheme] {
		return hostname
	}
	return host
}

// canonicalQuery strips tracking parameters and returns the remaining
// parameters sorted by key (and by value within a key), ready to assign
// to url.URL.RawQuery.
func canonicalQuery(values url.Values) string {
	for key := range trackingParams {
		values.Del(key)
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for j, v := range vs {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// IsHTTPScheme returns true if rawURL has an http or https scheme.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// HostOf extracts the "{scheme}://{netloc}" host key from a normalized
// URL, or the empty string if rawURL cannot be parsed.
func HostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
