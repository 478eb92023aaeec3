// Package crawler implements the frontier-driven SEO audit crawler.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/poolatlas/siteauditor/internal/auth"
	"github.com/poolatlas/siteauditor/internal/browser"
	"github.com/poolatlas/siteauditor/internal/extract"
	"github.com/poolatlas/siteauditor/internal/linkcheck"
	"github.com/poolatlas/siteauditor/internal/logger"
	"github.com/poolatlas/siteauditor/internal/metrics"
	"github.com/poolatlas/siteauditor/internal/queue"
	"github.com/poolatlas/siteauditor/internal/ratelimit"
	"github.com/poolatlas/siteauditor/internal/scope"
	"github.com/poolatlas/siteauditor/internal/shutdown"
	"github.com/poolatlas/siteauditor/internal/state"
)

// PageVisitor fetches one URL with a rendered browser page. The production
// implementation is browser.Browser.
type PageVisitor interface {
	Visit(ctx context.Context, url string) *browser.VisitResult
}

// loginFunc attempts the auth flow and reports whether a session exists.
type loginFunc func(ctx context.Context) (bool, error)

// Crawler orchestrates the whole audit: frontier scheduling, page crawling,
// link verification, analysis, and report assembly.
type Crawler struct {
	config  *Config
	log     *logger.Logger
	matcher *scope.Matcher
	queue   *queue.Memory
	state   *state.Manager
	metrics *metrics.Collector
	limiter *ratelimit.Limiter

	browserMu     sync.Mutex
	browser       *browser.Browser
	browserClosed bool

	visitor PageVisitor
	login   loginFunc
	checker *linkcheck.Checker

	// pages is only appended between batches, never during one.
	pages       []PageResult
	brokenLinks []BrokenLink
	startTime   time.Time
}

// New creates a crawler from a validated configuration.
func New(config *Config, opts ...Option) (*Crawler, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Crawler{
		config:  config.Clone(),
		log:     logger.New(loggerConfig(config)),
		metrics: metrics.New(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sites := c.config.EnabledSites()
	baseURLs := make([]string, 0, len(sites))
	for _, site := range sites {
		baseURLs = append(baseURLs, site.BaseURL)
	}

	matcher, err := scope.NewMatcher(baseURLs, c.config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid scope configuration: %w", err)
	}
	c.matcher = matcher

	c.queue = queue.NewMemory()
	c.limiter = ratelimit.NewLimiter(c.config.RateLimit.RequestsPerSecond, c.config.RateLimit.Burst)
	if c.config.RateLimit.DomainDelay > 0 {
		c.limiter.SetDomainDelay(c.config.RateLimit.DomainDelay)
	}

	store, err := c.openStateStore()
	if err != nil {
		return nil, err
	}
	estimated := c.config.Options.MaxPages
	if estimated <= 0 {
		estimated = 10000
	}
	c.state = state.NewManager(store, estimated)

	return c, nil
}

func loggerConfig(config *Config) logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Component = "crawler"
	if config.Verbose {
		cfg.Level = logger.DebugLevel
	}
	if config.Debug {
		cfg.Level = logger.DebugLevel
		cfg.Pretty = false
	}
	return cfg
}

func (c *Crawler) openStateStore() (state.Store, error) {
	if !c.config.State.Enabled {
		return nil, nil
	}
	switch c.config.State.Backend {
	case "file":
		return state.NewFileStore(c.config.State.Path), nil
	default:
		store, err := state.NewBoltStore(c.config.State.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		return store, nil
	}
}

// Run executes the complete audit and returns the report. The context
// cancels the crawl; pages finished so far still make it into the report.
func (c *Crawler) Run(ctx context.Context) (*CrawlReport, error) {
	c.startTime = time.Now()

	if c.visitor == nil {
		b, err := browser.New(c.browserConfig())
		if err != nil {
			return nil, err
		}
		c.browserMu.Lock()
		c.browser = b
		c.browserMu.Unlock()
		c.visitor = b
		defer c.closeBrowser()
	}
	defer c.state.Close()

	if err := c.restoreState(); err != nil {
		c.log.WithError(err).Warn("could not restore previous state, starting fresh")
	}

	sites := c.config.EnabledSites()
	for _, site := range sites {
		c.seedPaths(site, c.config.SeedPaths)
	}

	c.authenticate(ctx, sites)

	c.runBatches(ctx)

	if c.config.LinkCheck.Enabled {
		c.verifyLinks(ctx)
	}

	report := c.assembleReport(sites)

	if err := c.saveState(); err != nil {
		c.log.WithError(err).Warn("failed to persist crawl state")
	}

	c.log.Infof("audit finished: %d pages, %d issues, %d broken links",
		report.Stats.TotalPages, len(report.Issues), len(report.BrokenLinks))

	return report, nil
}

func (c *Crawler) browserConfig() browser.Config {
	cfg := c.config.Browser
	if c.config.Options.Timeout > 0 {
		cfg.Timeout = c.config.Options.Timeout
	}
	if c.config.Options.UserAgent != "" {
		cfg.UserAgent = c.config.Options.UserAgent
	}
	if c.config.Options.Viewport.Width > 0 {
		cfg.ViewportWidth = c.config.Options.Viewport.Width
		cfg.ViewportHeight = c.config.Options.Viewport.Height
	}
	return cfg
}

// authenticate runs the login flow once and, on success, seeds the
// protected and admin paths. A failed login is logged and the crawl goes on
// with public pages only.
func (c *Crawler) authenticate(ctx context.Context, sites []SiteConfig) {
	if !c.config.Auth.Enabled {
		return
	}

	if c.login == nil {
		if c.browser == nil {
			c.log.Warn("auth enabled but no browser available, skipping login")
			return
		}
		flow := auth.NewFormLogin(c.config.Auth.LoginPath, auth.Credentials{
			Email:    c.config.Auth.Email,
			Password: c.config.Auth.Password,
		})
		base := c.matcher.FirstBase()
		c.login = func(ctx context.Context) (bool, error) {
			return flow.Login(ctx, c.browser, base.String())
		}
	}

	ok, err := c.login(ctx)
	if err != nil {
		c.log.WithError(err).Warn("login flow failed, continuing unauthenticated")
		return
	}
	if !ok {
		c.log.Warn("login rejected, continuing unauthenticated")
		return
	}

	c.state.SetAuthenticated()
	c.log.Info("authenticated, seeding protected paths")

	for _, site := range sites {
		if site.CrawlProtected {
			c.seedPaths(site, c.config.ProtectedPaths)
		}
		if site.CrawlAdmin {
			c.seedPaths(site, c.config.AdminPaths)
		}
	}
}

// seedPaths pushes site-relative paths into the frontier.
func (c *Crawler) seedPaths(site SiteConfig, paths []string) {
	base := strings.TrimSuffix(site.BaseURL, "/")
	for _, path := range paths {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		normalized := scope.Normalize(base+path, nil)
		c.enqueue(queue.Item{URL: normalized, Site: site.Name})
	}
}

// enqueue applies the frontier admission rules: crawlable, in scope, not
// excluded, never visited, not already queued.
func (c *Crawler) enqueue(item queue.Item) {
	if !scope.IsCrawlable(item.URL) {
		return
	}
	if !c.matcher.IsInternal(item.URL) {
		return
	}
	if c.matcher.Excluded(item.URL) {
		c.log.WithURL(item.URL).Debug("excluded by pattern")
		return
	}
	if c.state.HasVisited(item.URL) {
		return
	}
	if err := c.queue.Push(&item); err != nil && !errors.Is(err, queue.ErrQueueClosed) {
		c.log.WithError(err).WithURL(item.URL).Warn("failed to enqueue")
	}
}

// runBatches drains the frontier in batches of at most Concurrency pages.
// Pages inside one batch crawl in parallel; the frontier and result set are
// only touched between batches.
func (c *Crawler) runBatches(ctx context.Context) {
	batchNum := 0

	for !c.queue.IsEmpty() {
		if ctx.Err() != nil {
			c.log.Info("crawl cancelled, stopping batch loop")
			return
		}

		size := c.config.Options.Concurrency
		if max := c.config.Options.MaxPages; max > 0 {
			remaining := max - c.state.PagesCrawled()
			if remaining <= 0 {
				c.log.Infof("page budget of %d reached", max)
				return
			}
			if remaining < size {
				size = remaining
			}
		}

		items, err := c.queue.PopBatch(size)
		if err != nil {
			return
		}

		results := make([]*PageResult, len(items))
		var wg sync.WaitGroup

		for i, item := range items {
			c.state.MarkVisited(item.URL)

			wg.Add(1)
			go func(i int, item *queue.Item) {
				defer wg.Done()
				results[i] = c.crawlPage(ctx, item)
			}(i, item)
		}

		wg.Wait()

		queued := 0
		for _, result := range results {
			if result == nil {
				continue
			}
			c.pages = append(c.pages, *result)
			for _, link := range result.InternalLinks {
				before := c.queue.Len()
				c.enqueue(queue.Item{
					URL:       scope.Normalize(link.Href, c.matcher.FirstBase()),
					Site:      result.Site,
					ParentURL: result.URL,
				})
				queued += c.queue.Len() - before
			}
		}

		batchNum++
		c.metrics.RecordBatch()
		c.metrics.SetQueueDepth(c.queue.Len())
		c.log.BatchEvent(batchNum, len(items), queued)

		if delay := c.config.Options.BatchDelay; delay > 0 && !c.queue.IsEmpty() {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// crawlPage visits one URL and converts the raw visit into a PageResult.
func (c *Crawler) crawlPage(ctx context.Context, item *queue.Item) *PageResult {
	if err := c.limiter.WaitDomain(ctx, hostOf(item.URL)); err != nil {
		return nil
	}

	c.metrics.PageStarted()
	defer c.metrics.PageFinished()

	visit := c.visitor.Visit(ctx, item.URL)

	result := &PageResult{
		URL:           item.URL,
		NormalizedURL: item.URL,
		FinalURL:      visit.FinalURL,
		StatusCode:    visit.StatusCode,
		RedirectChain: visit.RedirectChain,
		ConsoleErrors: visit.ConsoleErrors,
		LoadTimeMs:    visit.LoadTime.Milliseconds(),
		CrawledAt:     time.Now(),
		Site:          item.Site,
	}
	if visit.Err != nil {
		result.Error = visit.Err.Error()
	}

	meta := extract.ParseMetadata(visit.HTML)
	result.Metadata = PageMetadata{
		Title:              meta.Title,
		Description:        meta.Description,
		Canonical:          meta.Canonical,
		Robots:             meta.Robots,
		H1Count:            meta.H1Count,
		H1s:                meta.H1s,
		OGTitle:            meta.OGTitle,
		OGDescription:      meta.OGDescription,
		OGImage:            meta.OGImage,
		OGType:             meta.OGType,
		TwitterCard:        meta.TwitterCard,
		TwitterTitle:       meta.TwitterTitle,
		TwitterDescription: meta.TwitterDescription,
		JSONLD:             meta.JSONLD,
		Viewport:           meta.Viewport,
		Charset:            meta.Charset,
		Lang:               meta.Lang,
	}

	pageURL := visit.FinalURL
	if pageURL == "" {
		pageURL = item.URL
	}
	for _, link := range extract.ParseLinks(visit.HTML, pageURL) {
		if c.matcher.Excluded(link.Href) {
			continue
		}
		info := LinkInfo{Href: link.Href, Text: link.Text}
		if c.matcher.IsInternal(link.Href) {
			info.IsInternal = true
			result.InternalLinks = append(result.InternalLinks, info)
		} else {
			info.IsExternal = true
			result.ExternalLinks = append(result.ExternalLinks, info)
		}
	}

	failed := visit.Err != nil
	c.state.RecordPage(failed)
	c.metrics.RecordPage(visit.StatusCode, visit.LoadTime, len(visit.HTML), failed)
	c.metrics.RecordLinks(len(result.InternalLinks) + len(result.ExternalLinks))

	if failed {
		c.log.ErrorEvent(visit.Err, item.URL, "crawl")
	} else {
		c.log.PageEvent(item.URL, visit.StatusCode, visit.LoadTime)
	}

	return result
}

// verifyLinks checks every discovered link over plain HTTP and marks the
// broken ones on the pages that reference them.
func (c *Crawler) verifyLinks(ctx context.Context) {
	if c.checker == nil {
		c.checker = linkcheck.New(linkcheck.Config{
			Timeout:     c.config.LinkCheck.Timeout,
			Concurrency: c.config.LinkCheck.Concurrency,
			UserAgent:   c.config.Options.UserAgent,
		})
		defer c.checker.Close()
	}

	foundOn := make(map[string][]string)
	for _, page := range c.pages {
		for _, link := range append(append([]LinkInfo{}, page.InternalLinks...), page.ExternalLinks...) {
			foundOn[link.Href] = append(foundOn[link.Href], page.URL)
		}
	}
	if len(foundOn) == 0 {
		return
	}

	urls := make([]string, 0, len(foundOn))
	for u := range foundOn {
		urls = append(urls, u)
	}

	c.log.Infof("verifying %d links", len(urls))
	results := c.checker.CheckAll(ctx, urls)

	broken := make(map[string]linkcheck.Result)
	for u, result := range results {
		c.metrics.RecordLinkCheck(result.Broken())
		if result.Broken() {
			broken[u] = result
		}
	}

	for i := range c.pages {
		page := &c.pages[i]
		markBroken(page.InternalLinks, broken)
		markBroken(page.ExternalLinks, broken)
		for _, link := range page.InternalLinks {
			if link.IsBroken {
				page.BrokenLinks = append(page.BrokenLinks, link)
			}
		}
		for _, link := range page.ExternalLinks {
			if link.IsBroken {
				page.BrokenLinks = append(page.BrokenLinks, link)
			}
		}
	}

	c.brokenLinks = c.brokenLinks[:0]
	for href, result := range broken {
		entry := BrokenLink{
			Href:       href,
			FoundOn:    foundOn[href],
			StatusCode: result.StatusCode,
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		c.brokenLinks = append(c.brokenLinks, entry)
	}
}

func markBroken(links []LinkInfo, broken map[string]linkcheck.Result) {
	for i := range links {
		if _, ok := broken[links[i].Href]; ok {
			links[i].IsBroken = true
		}
	}
}

// restoreState reloads frontier and visited set from a previous run.
func (c *Crawler) restoreState() error {
	saved, err := c.state.Load()
	if err != nil || saved == nil {
		return err
	}

	c.state.RestoreVisited(saved.VisitedURLs)
	c.state.RestoreCounters(saved.PagesCrawled)
	for _, u := range saved.QueueURLs {
		_ = c.queue.Push(&queue.Item{URL: u})
	}
	if len(saved.Results) > 0 {
		var pages []PageResult
		if err := json.Unmarshal(saved.Results, &pages); err == nil {
			c.pages = pages
		}
	}

	c.log.Infof("resumed: %d visited, %d queued, %d pages",
		len(saved.VisitedURLs), len(saved.QueueURLs), len(c.pages))
	return nil
}

// saveState persists the frontier, visited set, and results.
func (c *Crawler) saveState() error {
	return c.state.Save(c.stateSnapshot(true))
}

// stateSnapshot captures the resumable state of the run. Results live on the
// batch loop's goroutine; only its own save may include them.
func (c *Crawler) stateSnapshot(includeResults bool) *state.CrawlerState {
	sites := c.config.EnabledSites()
	names := make([]string, 0, len(sites))
	for _, site := range sites {
		names = append(names, site.Name)
	}

	snapshot := &state.CrawlerState{
		Sites:         names,
		StartedAt:     c.startTime,
		Authenticated: c.state.IsAuthenticated(),
		PagesCrawled:  c.state.PagesCrawled(),
		QueueURLs:     c.queue.URLs(),
		VisitedURLs:   c.state.VisitedURLs(),
	}
	if includeResults {
		if results, err := json.Marshal(c.pages); err == nil {
			snapshot.Results = results
		}
	}
	return snapshot
}

// RegisterShutdown wires the crawler's resources into a shutdown handler.
// Callbacks run newest-first: the frontier stops handing out work, the
// browser aborts in-flight visits, and the state store gets a snapshot so an
// interrupted run can resume. Run still winds down normally afterwards, so
// pages finished so far reach the report.
func (c *Crawler) RegisterShutdown(h *shutdown.Handler) {
	h.Register("state store", func(ctx context.Context) error {
		return c.state.Save(c.stateSnapshot(false))
	})
	h.Register("browser", func(ctx context.Context) error {
		c.closeBrowser()
		return nil
	})
	h.Register("frontier", func(ctx context.Context) error {
		return c.queue.Close()
	})
}

// closeBrowser closes the run's browser at most once. It may be called from
// both Run's wind-down and a shutdown callback.
func (c *Crawler) closeBrowser() {
	c.browserMu.Lock()
	defer c.browserMu.Unlock()
	if c.browser == nil || c.browserClosed {
		return
	}
	c.browserClosed = true
	if err := c.browser.Close(); err != nil {
		c.log.WithError(err).Warn("browser close failed")
	}
}

// Metrics returns a snapshot of the run metrics.
func (c *Crawler) Metrics() metrics.Snapshot {
	return c.metrics.Snapshot()
}

// IsAuthenticated reports whether the login flow succeeded.
func (c *Crawler) IsAuthenticated() bool {
	return c.state.IsAuthenticated()
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Hostname()
}
