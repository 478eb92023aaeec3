// Package browser binds the auditor to a headless Chrome via Rod.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Config defines browser configuration shared by the whole run.
type Config struct {
	Headless          bool          `json:"headless" yaml:"headless"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent"`
	ViewportWidth     int           `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `json:"viewport_height" yaml:"viewport_height"`
	SettleDelay       time.Duration `json:"settle_delay" yaml:"settle_delay"`
	IgnoreHTTPSErrors bool          `json:"ignore_https_errors" yaml:"ignore_https_errors"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		Timeout:           15 * time.Second,
		UserAgent:         "SiteAuditor/1.0 (SEO crawler)",
		ViewportWidth:     1280,
		ViewportHeight:    800,
		SettleDelay:       500 * time.Millisecond,
		IgnoreHTTPSErrors: true,
	}
}

// VisitResult is the raw outcome of one page visit. Navigation failures are
// recorded here rather than returned, so a failed page still carries whatever
// DOM and events were observed before the failure.
type VisitResult struct {
	URL           string
	FinalURL      string
	StatusCode    int // 0 when navigation failed
	RedirectChain []string
	HTML          string
	ConsoleErrors []string
	LoadTime      time.Duration
	Err           error
}

// Browser wraps one shared Rod browser process. Each Visit opens an isolated
// page, so peak page usage is bounded by the caller's concurrency.
type Browser struct {
	browser *rod.Browser
	config  Config

	mu        sync.Mutex
	pageCount int
}

// New launches a browser and connects to it.
func New(config Config) (*Browser, error) {
	l := launcher.New().Headless(config.Headless)
	if config.IgnoreHTTPSErrors {
		l = l.Set("ignore-certificate-errors", "true")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{browser: b, config: config}, nil
}

// NewPage opens a fresh page with the configured user agent and viewport.
// Callers own the page and must close it.
func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)
	b.preparePage(page)

	b.mu.Lock()
	b.pageCount++
	b.mu.Unlock()

	return page, nil
}

// preparePage applies viewport and user agent. Failures are non-critical.
func (b *Browser) preparePage(page *rod.Page) {
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.config.ViewportWidth,
		Height: b.config.ViewportHeight,
	})
	if b.config.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{
			UserAgent: b.config.UserAgent,
		}.Call(page)
	}
}

// Visit navigates to a URL on an isolated page, waits for it to stabilize,
// and collects the rendered HTML together with console errors and the
// redirect chain. The page is closed on every exit path.
func (b *Browser) Visit(ctx context.Context, url string) *VisitResult {
	start := time.Now()
	result := &VisitResult{URL: url, FinalURL: url}

	page, err := b.NewPage(ctx)
	if err != nil {
		result.Err = err
		result.LoadTime = time.Since(start)
		return result
	}
	defer page.Close()

	// Buffers filled by the event goroutine. Listeners must be attached
	// before navigation starts or early events are lost.
	var evMu sync.Mutex
	var consoleErrors []string
	var redirectChain []string
	var statusCode int

	// Iframes emit document responses too; only the top frame's response
	// carries the page status.
	mainFrame := page.FrameID

	go page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			if e.Type != proto.RuntimeConsoleAPICalledTypeError &&
				e.Type != proto.RuntimeConsoleAPICalledTypeWarning {
				return
			}
			evMu.Lock()
			consoleErrors = append(consoleErrors, formatConsoleArgs(e.Args))
			evMu.Unlock()
		},
		func(e *proto.NetworkRequestWillBeSent) {
			if !isMainDocument(e.Type, e.FrameID, mainFrame) || e.RedirectResponse == nil {
				return
			}
			evMu.Lock()
			redirectChain = append(redirectChain, e.RedirectResponse.URL)
			evMu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			if !isMainDocument(e.Type, e.FrameID, mainFrame) {
				return
			}
			evMu.Lock()
			statusCode = e.Response.Status
			evMu.Unlock()
		},
	)()

	navPage := page.Timeout(b.config.Timeout)
	if err := navPage.Navigate(url); err != nil {
		result.Err = err
	} else if err := navPage.WaitLoad(); err != nil {
		result.Err = err
	}

	// Stabilization: client-rendered pages keep mutating the DOM after the
	// load event fires.
	if result.Err == nil && b.config.SettleDelay > 0 {
		select {
		case <-time.After(b.config.SettleDelay):
		case <-ctx.Done():
		}
	}

	if info, err := page.Info(); err == nil && info != nil && info.URL != "" {
		result.FinalURL = info.URL
	}

	// Best effort even after a navigation error: extract whatever DOM exists.
	if html, err := page.HTML(); err == nil {
		result.HTML = html
	}

	evMu.Lock()
	result.ConsoleErrors = consoleErrors
	result.RedirectChain = redirectChain
	if result.Err == nil {
		result.StatusCode = statusCode
	}
	evMu.Unlock()

	result.LoadTime = time.Since(start)
	return result
}

// isMainDocument reports whether a network response is the top frame's own
// document, as opposed to a subresource or an iframe's document.
func isMainDocument(resourceType proto.NetworkResourceType, frame, mainFrame proto.PageFrameID) bool {
	return resourceType == proto.NetworkResourceTypeDocument && frame == mainFrame
}

// formatConsoleArgs renders console call arguments into one message string.
func formatConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if s := consoleArgString(arg.Value, arg.Description); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// consoleArgString prefers the serialized value; objects and errors only
// carry a description.
func consoleArgString(value gson.JSON, description string) string {
	if value.Val() != nil {
		return value.String()
	}
	return description
}

// PageCount returns the number of pages opened so far.
func (b *Browser) PageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pageCount
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	return b.browser.Close()
}
