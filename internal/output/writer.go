// Package output serializes crawl reports.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/poolatlas/siteauditor/pkg/crawler"
)

// Writer defines the interface for report writers.
type Writer interface {
	// WriteReport writes the complete crawl report.
	WriteReport(report *crawler.CrawlReport) error

	// Close closes the writer and any underlying file.
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format   string // only "json" today
	Pretty   bool
	FilePath string // empty means stdout
}

// NewWriter creates a writer for the configured destination and format.
func NewWriter(config Config) (Writer, error) {
	var w io.Writer = os.Stdout
	var file *os.File

	if config.FilePath != "" {
		f, err := os.Create(config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
		file = f
	}

	switch config.Format {
	case "", "json":
		return NewJSONWriter(w, file, config.Pretty), nil
	default:
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("unknown output format %q", config.Format)
	}
}
