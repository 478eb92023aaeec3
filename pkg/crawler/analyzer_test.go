package crawler

import (
	"strings"
	"testing"
)

// healthyPage returns a page that trips no rules.
func healthyPage(url string) PageResult {
	return PageResult{
		URL:        url,
		StatusCode: 200,
		LoadTimeMs: 900,
		Metadata: PageMetadata{
			Title:         "Find a Carpool",
			Description:   "Share rides with neighbors going the same way.",
			Canonical:     url,
			H1Count:       1,
			H1s:           []string{"Carpools near you"},
			OGTitle:       "Find a Carpool",
			OGDescription: "Share rides with neighbors.",
			Viewport:      "width=device-width, initial-scale=1",
			Lang:          "en",
		},
	}
}

func TestAnalyzeIssues_HealthyPage(t *testing.T) {
	issues := AnalyzeIssues([]PageResult{healthyPage("https://example.com")})
	if len(issues) != 0 {
		t.Errorf("healthy page produced %d issues: %+v", len(issues), issues)
	}
}

func TestAnalyzeIssues_MissingDescriptionOnly(t *testing.T) {
	page := healthyPage("https://example.com")
	page.Metadata.Title = strings.Repeat("t", 40)
	page.Metadata.Description = ""

	issues := AnalyzeIssues([]PageResult{page})

	var criticals int
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			criticals++
			if issue.Category != "Meta Description" {
				t.Errorf("critical issue in category %q, want Meta Description", issue.Category)
			}
		}
		if issue.Category == "Headings" {
			t.Errorf("unexpected headings issue for single-H1 page: %+v", issue)
		}
		if issue.Category == "Title" {
			t.Errorf("unexpected title issue for 40-char title: %+v", issue)
		}
	}
	if criticals != 1 {
		t.Errorf("got %d critical issues, want exactly 1", criticals)
	}
}

func TestAnalyzeIssues_ErrorStatus(t *testing.T) {
	page := healthyPage("https://example.com/gone")
	page.StatusCode = 404
	page.Metadata = PageMetadata{}

	issues := AnalyzeIssues([]PageResult{page})

	byCategory := map[string]int{}
	for _, issue := range issues {
		byCategory[issue.Category]++
		if issue.Category == "HTTP Status" && issue.Severity != SeverityCritical {
			t.Errorf("HTTP Status issue has severity %q, want critical", issue.Severity)
		}
	}
	if byCategory["HTTP Status"] != 1 {
		t.Errorf("got %d HTTP Status issues, want 1: %+v", byCategory["HTTP Status"], issues)
	}
	// Rules are additive: the error page's (empty) markup is still audited.
	for _, category := range []string{"Title", "Meta Description", "Headings", "Mobile"} {
		if byCategory[category] == 0 {
			t.Errorf("content rule %q did not fire for the 404 page", category)
		}
	}
}

func TestAnalyzeIssues_ErrorStatusWithHealthyMarkup(t *testing.T) {
	// A custom 404 page whose markup passes every content rule still gets
	// the status finding, and only that.
	page := healthyPage("https://example.com/gone")
	page.StatusCode = 404

	issues := AnalyzeIssues([]PageResult{page})
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	if issues[0].Severity != SeverityCritical || issues[0].Category != "HTTP Status" {
		t.Errorf("issue = %+v, want critical HTTP Status", issues[0])
	}
}

func TestAnalyzeIssues_NavigationFailure(t *testing.T) {
	page := PageResult{URL: "https://example.com/down", StatusCode: 0, Error: "net::ERR_CONNECTION_REFUSED"}

	issues := AnalyzeIssues([]PageResult{page})

	var status *SEOIssue
	var titles int
	for i := range issues {
		switch issues[i].Category {
		case "HTTP Status":
			status = &issues[i]
		case "Title":
			titles++
		}
	}
	if status == nil {
		t.Fatal("failed page has no HTTP Status issue")
	}
	if status.Severity != SeverityCritical {
		t.Errorf("severity = %q, want critical", status.Severity)
	}
	if !strings.Contains(status.Message, "ERR_CONNECTION_REFUSED") {
		t.Errorf("message should carry the navigation error: %q", status.Message)
	}
	if titles == 0 {
		t.Error("content rules did not run for the failed page")
	}
}

func TestAnalyzeIssues_ContentRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*PageResult)
		severity Severity
		category string
	}{
		{
			name:     "long title",
			mutate:   func(p *PageResult) { p.Metadata.Title = strings.Repeat("t", 61) },
			severity: SeverityWarning,
			category: "Title",
		},
		{
			name:     "missing title",
			mutate:   func(p *PageResult) { p.Metadata.Title = "   " },
			severity: SeverityCritical,
			category: "Title",
		},
		{
			name:     "long description",
			mutate:   func(p *PageResult) { p.Metadata.Description = strings.Repeat("d", 161) },
			severity: SeverityWarning,
			category: "Meta Description",
		},
		{
			name:     "no h1",
			mutate:   func(p *PageResult) { p.Metadata.H1Count = 0; p.Metadata.H1s = nil },
			severity: SeverityWarning,
			category: "Headings",
		},
		{
			name:     "multiple h1",
			mutate:   func(p *PageResult) { p.Metadata.H1Count = 3 },
			severity: SeverityWarning,
			category: "Headings",
		},
		{
			name:     "missing canonical",
			mutate:   func(p *PageResult) { p.Metadata.Canonical = "" },
			severity: SeverityWarning,
			category: "Canonical",
		},
		{
			name:     "missing og title",
			mutate:   func(p *PageResult) { p.Metadata.OGTitle = "" },
			severity: SeverityInfo,
			category: "Social Meta",
		},
		{
			name:     "console errors",
			mutate:   func(p *PageResult) { p.ConsoleErrors = []string{"TypeError: x is undefined"} },
			severity: SeverityWarning,
			category: "Console Errors",
		},
		{
			name:     "slow load",
			mutate:   func(p *PageResult) { p.LoadTimeMs = 4500 },
			severity: SeverityWarning,
			category: "Performance",
		},
		{
			name:     "missing viewport",
			mutate:   func(p *PageResult) { p.Metadata.Viewport = "" },
			severity: SeverityWarning,
			category: "Mobile",
		},
		{
			name:     "missing lang",
			mutate:   func(p *PageResult) { p.Metadata.Lang = "" },
			severity: SeverityInfo,
			category: "Language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := healthyPage("https://example.com")
			tt.mutate(&page)

			issues := AnalyzeIssues([]PageResult{page})
			if len(issues) != 1 {
				t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
			}
			if issues[0].Severity != tt.severity || issues[0].Category != tt.category {
				t.Errorf("issue = %s/%s, want %s/%s",
					issues[0].Severity, issues[0].Category, tt.severity, tt.category)
			}
		})
	}
}

func TestAnalyzeIssues_SortedBySeverity(t *testing.T) {
	info := healthyPage("https://example.com/a")
	info.Metadata.Lang = ""

	warning := healthyPage("https://example.com/b")
	warning.Metadata.Canonical = ""

	critical := healthyPage("https://example.com/c")
	critical.StatusCode = 500

	issues := AnalyzeIssues([]PageResult{info, warning, critical})
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3", len(issues))
	}
	want := []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
	for i, severity := range want {
		if issues[i].Severity != severity {
			t.Errorf("issues[%d].Severity = %q, want %q", i, issues[i].Severity, severity)
		}
	}
}
