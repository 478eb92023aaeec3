package crawler

import (
	"context"
	"time"

	"github.com/poolatlas/siteauditor/internal/logger"
)

// Option is a functional option for configuring the Crawler.
type Option func(*Crawler) error

// WithLogger replaces the crawler's logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Crawler) error {
		c.log = log
		return nil
	}
}

// WithConcurrency sets the maximum parallel page crawls per batch.
func WithConcurrency(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.config.Options.Concurrency = n
		return nil
	}
}

// WithMaxPages caps the total number of pages crawled. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(c *Crawler) error {
		if n < 0 {
			n = 0
		}
		c.config.Options.MaxPages = n
		return nil
	}
}

// WithBatchDelay sets the pause between crawl batches.
func WithBatchDelay(d time.Duration) Option {
	return func(c *Crawler) error {
		c.config.Options.BatchDelay = d
		return nil
	}
}

// WithExcludePatterns adds glob patterns whose matches are never visited.
func WithExcludePatterns(patterns ...string) Option {
	return func(c *Crawler) error {
		c.config.ExcludePatterns = append(c.config.ExcludePatterns, patterns...)
		return nil
	}
}

// WithVisitor replaces the page visitor. Used by tests to crawl without a
// real browser.
func WithVisitor(visitor PageVisitor) Option {
	return func(c *Crawler) error {
		c.visitor = visitor
		return nil
	}
}

// WithLoginFunc replaces the login flow. Used by tests.
func WithLoginFunc(fn func(ctx context.Context) (bool, error)) Option {
	return func(c *Crawler) error {
		c.login = fn
		return nil
	}
}
