package crawler

import "time"

// Severity ranks an issue. Reports sort critical before warning before info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// rank returns the sort position of a severity.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// SiteConfig identifies one crawl target. Immutable for the run.
type SiteConfig struct {
	Name           string `json:"name" yaml:"name"`
	BaseURL        string `json:"baseUrl" yaml:"base_url"`
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	CrawlProtected bool   `json:"crawlProtected" yaml:"crawl_protected"`
	CrawlAdmin     bool   `json:"crawlAdmin" yaml:"crawl_admin"`
}

// Viewport is the browser viewport used for every page.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// CrawlOptions is the immutable configuration for one run.
type CrawlOptions struct {
	// Maximum parallel page crawls per batch.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Per-navigation timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Maximum total pages; 0 means unlimited.
	MaxPages int `json:"maxPages" yaml:"max_pages"`

	// Delay between batches.
	BatchDelay time.Duration `json:"batchDelay" yaml:"batch_delay"`

	UserAgent string   `json:"userAgent" yaml:"user_agent"`
	Viewport  Viewport `json:"viewport" yaml:"viewport"`
}

// PageMetadata is a pure extraction snapshot of one page.
type PageMetadata struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Canonical          string   `json:"canonical"`
	Robots             string   `json:"robots"`
	H1Count            int      `json:"h1Count"`
	H1s                []string `json:"h1s"`
	OGTitle            string   `json:"ogTitle"`
	OGDescription      string   `json:"ogDescription"`
	OGImage            string   `json:"ogImage"`
	OGType             string   `json:"ogType"`
	TwitterCard        string   `json:"twitterCard"`
	TwitterTitle       string   `json:"twitterTitle"`
	TwitterDescription string   `json:"twitterDescription"`
	JSONLD             []string `json:"jsonLd"`
	Viewport           string   `json:"viewport"`
	Charset            string   `json:"charset"`
	Lang               string   `json:"lang"`
}

// LinkInfo is one anchor found on a page.
type LinkInfo struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsInternal bool   `json:"isInternal"`
	IsExternal bool   `json:"isExternal"`
	IsBroken   bool   `json:"isBroken"`
}

// PageResult is the complete record of one crawled URL's outcome. It is
// created once per URL; only the broken-link verifier touches it afterwards.
type PageResult struct {
	URL           string       `json:"url"`
	NormalizedURL string       `json:"normalizedUrl"`
	FinalURL      string       `json:"finalUrl"`
	StatusCode    int          `json:"statusCode"` // 0 means navigation failure
	RedirectChain []string     `json:"redirectChain"`
	Metadata      PageMetadata `json:"metadata"`
	InternalLinks []LinkInfo   `json:"internalLinks"`
	ExternalLinks []LinkInfo   `json:"externalLinks"`
	BrokenLinks   []LinkInfo   `json:"brokenLinks"`
	ConsoleErrors []string     `json:"consoleErrors"`
	LoadTimeMs    int64        `json:"loadTimeMs"`
	CrawledAt     time.Time    `json:"crawledAt"`
	Site          string       `json:"site"`
	Error         string       `json:"error,omitempty"`
}

// SEOIssue is a single rule-derived finding.
type SEOIssue struct {
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	URL            string   `json:"url"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

// BrokenLink is one unreachable link and the pages that reference it.
type BrokenLink struct {
	Href       string   `json:"href"`
	FoundOn    []string `json:"foundOn"`
	StatusCode int      `json:"statusCode"`
	Error      string   `json:"error,omitempty"`
}

// CrawlStats aggregates counts and averages over one run.
type CrawlStats struct {
	TotalPages              int   `json:"totalPages"`
	SuccessfulPages         int   `json:"successfulPages"`
	FailedPages             int   `json:"failedPages"`
	RedirectedPages         int   `json:"redirectedPages"`
	PagesWithConsoleErrors  int   `json:"pagesWithConsoleErrors"`
	PagesWithBrokenLinks    int   `json:"pagesWithBrokenLinks"`
	PagesMissingTitle       int   `json:"pagesMissingTitle"`
	PagesMissingDescription int   `json:"pagesMissingDescription"`
	PagesMissingH1          int   `json:"pagesMissingH1"`
	PagesWithMultipleH1     int   `json:"pagesWithMultipleH1"`
	NoindexPages            int   `json:"noindexPages"`
	AverageLoadTimeMs       int64 `json:"averageLoadTimeMs"`
	TotalCrawlTimeMs        int64 `json:"totalCrawlTimeMs"`
}

// CrawlReport is the terminal artifact of one run, handed as-is to
// downstream serializers.
type CrawlReport struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Sites       []string     `json:"sites"`
	Stats       CrawlStats   `json:"stats"`
	Pages       []PageResult `json:"pages"`
	BrokenLinks []BrokenLink `json:"brokenLinks"`
	Issues      []SEOIssue   `json:"issues"`
}

// HasCritical reports whether the report contains at least one critical issue.
func (r *CrawlReport) HasCritical() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
