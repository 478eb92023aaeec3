package crawler

import (
	"fmt"
	"sort"
	"strings"
)

// SEO rule thresholds. Title and description limits follow the usual SERP
// truncation lengths.
const (
	maxTitleLen       = 60
	maxDescriptionLen = 160
	slowLoadMs        = 3000
)

// AnalyzeIssues runs every SEO rule over the crawled pages and returns the
// findings ordered critical first, then warning, then info. Within one
// severity the original page order is preserved.
//
// Rules are independent and additive: an error page gets a critical status
// finding and its rendered markup is still audited by the content rules.
func AnalyzeIssues(pages []PageResult) []SEOIssue {
	var issues []SEOIssue

	for _, page := range pages {
		issues = append(issues, analyzePage(&page)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.rank() < issues[j].Severity.rank()
	})

	return issues
}

func analyzePage(page *PageResult) []SEOIssue {
	var issues []SEOIssue

	add := func(severity Severity, category, message, recommendation string) {
		issues = append(issues, SEOIssue{
			Severity:       severity,
			Category:       category,
			URL:            page.URL,
			Message:        message,
			Recommendation: recommendation,
		})
	}

	switch {
	case page.StatusCode == 0:
		msg := "page failed to load"
		if page.Error != "" {
			msg = fmt.Sprintf("page failed to load: %s", page.Error)
		}
		add(SeverityCritical, "HTTP Status", msg,
			"Verify the URL is reachable and the server responds within the timeout")
	case page.StatusCode >= 400:
		add(SeverityCritical, "HTTP Status",
			fmt.Sprintf("page returned HTTP %d", page.StatusCode),
			"Fix or remove links pointing at this URL, or restore the page")
	}

	meta := &page.Metadata

	switch {
	case strings.TrimSpace(meta.Title) == "":
		add(SeverityCritical, "Title", "page has no <title>",
			"Add a unique, descriptive title under 60 characters")
	case len([]rune(meta.Title)) > maxTitleLen:
		add(SeverityWarning, "Title",
			fmt.Sprintf("title is %d characters, over the %d character limit", len([]rune(meta.Title)), maxTitleLen),
			"Shorten the title so it is not truncated in search results")
	}

	switch {
	case strings.TrimSpace(meta.Description) == "":
		add(SeverityCritical, "Meta Description", "page has no meta description",
			"Add a meta description under 160 characters summarizing the page")
	case len([]rune(meta.Description)) > maxDescriptionLen:
		add(SeverityWarning, "Meta Description",
			fmt.Sprintf("meta description is %d characters, over the %d character limit",
				len([]rune(meta.Description)), maxDescriptionLen),
			"Shorten the description so it is not truncated in search results")
	}

	switch {
	case meta.H1Count == 0:
		add(SeverityWarning, "Headings", "page has no <h1>",
			"Add exactly one <h1> describing the page's main content")
	case meta.H1Count > 1:
		add(SeverityWarning, "Headings",
			fmt.Sprintf("page has %d <h1> elements", meta.H1Count),
			"Keep a single <h1> and demote the rest to <h2>")
	}

	if strings.TrimSpace(meta.Canonical) == "" {
		add(SeverityWarning, "Canonical", "page has no canonical link",
			"Add <link rel=\"canonical\"> to consolidate duplicate URLs")
	}

	if strings.TrimSpace(meta.OGTitle) == "" {
		add(SeverityInfo, "Social Meta", "page has no og:title",
			"Add Open Graph tags so shared links render a proper preview")
	}
	if strings.TrimSpace(meta.OGDescription) == "" {
		add(SeverityInfo, "Social Meta", "page has no og:description",
			"Add og:description so shared links carry a summary")
	}

	if n := len(page.ConsoleErrors); n > 0 {
		add(SeverityWarning, "Console Errors",
			fmt.Sprintf("page logged %d console error(s) while rendering", n),
			"Fix JavaScript errors; they can break rendering for crawlers and users")
	}

	if page.LoadTimeMs > slowLoadMs {
		add(SeverityWarning, "Performance",
			fmt.Sprintf("page took %dms to load, over the %dms budget", page.LoadTimeMs, slowLoadMs),
			"Reduce payload size or defer non-critical scripts")
	}

	if strings.TrimSpace(meta.Viewport) == "" {
		add(SeverityWarning, "Mobile", "page has no viewport meta tag",
			"Add <meta name=\"viewport\"> for mobile-friendly rendering")
	}

	if strings.TrimSpace(meta.Lang) == "" {
		add(SeverityInfo, "Language", "html element has no lang attribute",
			"Set <html lang=\"...\"> so search engines know the page language")
	}

	return issues
}
