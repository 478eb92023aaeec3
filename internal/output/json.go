package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/poolatlas/siteauditor/pkg/crawler"
)

// JSONWriter writes the report as a single JSON document.
type JSONWriter struct {
	w      io.Writer
	file   *os.File
	pretty bool
}

// NewJSONWriter creates a JSON report writer. file may be nil when writing
// to a non-file destination.
func NewJSONWriter(w io.Writer, file *os.File, pretty bool) *JSONWriter {
	return &JSONWriter{w: w, file: file, pretty: pretty}
}

// WriteReport writes the report.
func (j *JSONWriter) WriteReport(report *crawler.CrawlReport) error {
	enc := json.NewEncoder(j.w)
	if j.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}

// Close closes the underlying file if there is one.
func (j *JSONWriter) Close() error {
	if j.file == nil {
		return nil
	}
	return j.file.Close()
}
