// Package scope provides URL normalization and scope checking for the auditor.
package scope

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Matcher classifies URLs against the configured site bases and exclusion patterns.
type Matcher struct {
	bases      []*url.URL
	exclusions []*regexp.Regexp
}

// NewMatcher creates a matcher for the given base URLs and glob exclusion patterns.
func NewMatcher(baseURLs []string, excludePatterns []string) (*Matcher, error) {
	if len(baseURLs) == 0 {
		return nil, fmt.Errorf("at least one base URL is required")
	}

	m := &Matcher{}
	for _, raw := range baseURLs {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("base URL %q has no host", raw)
		}
		m.bases = append(m.bases, parsed)
	}

	for _, pattern := range excludePatterns {
		re, err := CompileGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", pattern, err)
		}
		m.exclusions = append(m.exclusions, re)
	}

	return m, nil
}

// FirstBase returns the first configured base URL. Discovered links across the
// whole run are resolved against it, regardless of their owning site.
func (m *Matcher) FirstBase() *url.URL {
	return m.bases[0]
}

// IsInternal reports whether the URL's host equals or is a subdomain of any
// configured base host.
func (m *Matcher) IsInternal(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, base := range m.bases {
		baseHost := strings.ToLower(base.Hostname())
		if host == baseHost || strings.HasSuffix(host, "."+baseHost) {
			return true
		}
	}
	return false
}

// Excluded reports whether the URL matches any compiled exclusion pattern.
func (m *Matcher) Excluded(raw string) bool {
	for _, re := range m.exclusions {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// Normalize canonicalizes a URL for deduplication: resolves it against base,
// strips a single trailing slash from the path, drops the fragment, and sorts
// query parameters. On parse failure the input is returned unchanged, so
// callers must tolerate non-canonical fallbacks.
func Normalize(raw string, base *url.URL) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if base != nil {
		parsed = base.ResolveReference(parsed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	if parsed.RawQuery != "" {
		// url.Values.Encode sorts by key.
		parsed.RawQuery = parsed.Query().Encode()
	}

	return parsed.String()
}

// CompileGlob compiles a glob pattern (* matches any sequence, ? matches a
// single character) into a case-insensitive full-match regexp.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// IsCrawlable checks whether a URL points at a page worth visiting.
func IsCrawlable(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}

	// Skip common non-page extensions.
	path := strings.ToLower(parsed.Path)
	skipExtensions := []string{
		".jpg", ".jpeg", ".png", ".gif", ".ico", ".svg", ".webp",
		".css", ".js", ".woff", ".woff2", ".ttf", ".eot",
		".pdf", ".zip", ".tar", ".gz", ".rar",
		".mp3", ".mp4", ".wav", ".avi", ".mov",
	}
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	return true
}
