package crawler

import (
	"strings"
	"time"
)

// assembleReport turns the accumulated pages into the final report.
func (c *Crawler) assembleReport(sites []SiteConfig) *CrawlReport {
	names := make([]string, 0, len(sites))
	for _, site := range sites {
		names = append(names, site.Name)
	}

	return &CrawlReport{
		GeneratedAt: time.Now(),
		Sites:       names,
		Stats:       buildStats(c.pages, time.Since(c.startTime)),
		Pages:       c.pages,
		BrokenLinks: c.brokenLinks,
		Issues:      AnalyzeIssues(c.pages),
	}
}

// buildStats aggregates per-page outcomes into run-level statistics.
func buildStats(pages []PageResult, elapsed time.Duration) CrawlStats {
	stats := CrawlStats{
		TotalPages:       len(pages),
		TotalCrawlTimeMs: elapsed.Milliseconds(),
	}

	var loadTimeSum int64
	for _, page := range pages {
		switch {
		case page.StatusCode == 0:
			stats.FailedPages++
		case page.StatusCode >= 400:
			stats.FailedPages++
		default:
			stats.SuccessfulPages++
		}

		if len(page.RedirectChain) > 0 {
			stats.RedirectedPages++
		}
		if len(page.ConsoleErrors) > 0 {
			stats.PagesWithConsoleErrors++
		}
		if len(page.BrokenLinks) > 0 {
			stats.PagesWithBrokenLinks++
		}

		// Content stats only make sense for pages that rendered.
		if page.StatusCode == 0 || page.StatusCode >= 400 {
			continue
		}

		if strings.TrimSpace(page.Metadata.Title) == "" {
			stats.PagesMissingTitle++
		}
		if strings.TrimSpace(page.Metadata.Description) == "" {
			stats.PagesMissingDescription++
		}
		switch {
		case page.Metadata.H1Count == 0:
			stats.PagesMissingH1++
		case page.Metadata.H1Count > 1:
			stats.PagesWithMultipleH1++
		}
		if strings.Contains(strings.ToLower(page.Metadata.Robots), "noindex") {
			stats.NoindexPages++
		}

		loadTimeSum += page.LoadTimeMs
	}

	if stats.SuccessfulPages > 0 {
		stats.AverageLoadTimeMs = loadTimeSum / int64(stats.SuccessfulPages)
	}

	return stats
}
