package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poolatlas/siteauditor/pkg/crawler"
)

func sampleReport() *crawler.CrawlReport {
	return &crawler.CrawlReport{
		GeneratedAt: time.Now(),
		Sites:       []string{"production"},
		Stats:       crawler.CrawlStats{TotalPages: 2, SuccessfulPages: 1, FailedPages: 1},
		Pages: []crawler.PageResult{
			{URL: "https://example.com", StatusCode: 200},
			{URL: "https://example.com/gone", StatusCode: 404},
		},
		Issues: []crawler.SEOIssue{
			{Severity: crawler.SeverityCritical, Category: "HTTP Status", URL: "https://example.com/gone"},
		},
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, nil, false)

	if err := w.WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	var decoded crawler.CrawlReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Stats.TotalPages != 2 || len(decoded.Pages) != 2 {
		t.Errorf("decoded report mismatch: %+v", decoded.Stats)
	}
	if len(decoded.Issues) != 1 || decoded.Issues[0].Severity != crawler.SeverityCritical {
		t.Errorf("decoded issues mismatch: %+v", decoded.Issues)
	}
}

func TestJSONWriter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, nil, true)

	if err := w.WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty output should be indented")
	}
}

func TestNewWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	w, err := NewWriter(Config{Format: "json", Pretty: true, FilePath: path})
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}
	if err := w.WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file failed: %v", err)
	}
	var decoded crawler.CrawlReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	if _, err := NewWriter(Config{Format: "xml"}); err == nil {
		t.Error("NewWriter should reject unknown formats")
	}
}
