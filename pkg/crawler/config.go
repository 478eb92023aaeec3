package crawler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poolatlas/siteauditor/internal/browser"
)

// Environment variables carrying the login credentials. Credentials never
// appear in config files or flags.
const (
	EnvEmail    = "SITEAUDITOR_EMAIL"
	EnvPassword = "SITEAUDITOR_PASSWORD"
)

// AuthConfig holds the login flow configuration. The credentials themselves
// come from the environment, never from the file.
type AuthConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	LoginPath string `json:"loginPath" yaml:"login_path"`
	Email     string `json:"-" yaml:"-"`
	Password  string `json:"-" yaml:"-"`
}

// RateLimitConfig paces page visits.
type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`
	DomainDelay       time.Duration `json:"domainDelay" yaml:"domain_delay"`
}

// OutputConfig controls report serialization.
type OutputConfig struct {
	Format   string `json:"format" yaml:"format"`
	Pretty   bool   `json:"pretty" yaml:"pretty"`
	FilePath string `json:"filePath" yaml:"file_path"`
}

// StateConfig controls crawl state persistence for resumable runs.
type StateConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Backend string `json:"backend" yaml:"backend"` // "bolt" or "file"
	Path    string `json:"path" yaml:"path"`
}

// LinkCheckConfig controls the post-crawl broken link pass.
type LinkCheckConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// Config holds all auditor configuration.
type Config struct {
	// Sites to audit. Disabled sites are skipped entirely.
	Sites []SiteConfig `json:"sites" yaml:"sites"`

	// Crawl behavior.
	Options CrawlOptions `json:"options" yaml:"options"`

	// Paths seeded into the frontier for every site.
	SeedPaths []string `json:"seedPaths" yaml:"seed_paths"`

	// Paths seeded only after a successful login.
	ProtectedPaths []string `json:"protectedPaths" yaml:"protected_paths"`

	// Admin paths, seeded only for sites that opt in, after login.
	AdminPaths []string `json:"adminPaths" yaml:"admin_paths"`

	// Glob patterns; matching URLs are never visited.
	ExcludePatterns []string `json:"excludePatterns" yaml:"exclude_patterns"`

	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rate_limit"`
	Browser   browser.Config  `json:"browser" yaml:"browser"`
	LinkCheck LinkCheckConfig `json:"linkCheck" yaml:"link_check"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	State     StateConfig     `json:"state" yaml:"state"`

	Verbose bool `json:"verbose" yaml:"verbose"`
	Debug   bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Options: CrawlOptions{
			Concurrency: 3,
			Timeout:     15 * time.Second,
			MaxPages:    0,
			BatchDelay:  500 * time.Millisecond,
			UserAgent:   "SiteAuditor/1.0 (SEO crawler)",
			Viewport:    Viewport{Width: 1280, Height: 800},
		},
		SeedPaths: []string{"/"},
		ExcludePatterns: []string{
			"*/logout*",
			"*/signout*",
		},
		Auth: AuthConfig{
			LoginPath: "/login",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             3,
		},
		Browser: browser.DefaultConfig(),
		LinkCheck: LinkCheckConfig{
			Enabled:     true,
			Concurrency: 10,
			Timeout:     10 * time.Second,
		},
		Output: OutputConfig{
			Format: "json",
			Pretty: true,
		},
		State: StateConfig{
			Backend: "bolt",
			Path:    "siteauditor-state.db",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file, layered over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if yamlErr := yaml.Unmarshal(data, config); yamlErr != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config as YAML (%v) or JSON (%v)", yamlErr, jsonErr)
		}
	}

	return config, nil
}

// LoadCredentialsFromEnv fills the auth credentials from the environment.
func (c *Config) LoadCredentialsFromEnv() {
	if email := os.Getenv(EnvEmail); email != "" {
		c.Auth.Email = email
	}
	if password := os.Getenv(EnvPassword); password != "" {
		c.Auth.Password = password
	}
}

// EnabledSites returns the sites that will actually be crawled.
func (c *Config) EnabledSites() []SiteConfig {
	var sites []SiteConfig
	for _, site := range c.Sites {
		if site.Enabled {
			sites = append(sites, site)
		}
	}
	return sites
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	enabled := c.EnabledSites()
	if len(enabled) == 0 {
		return fmt.Errorf("no enabled sites configured")
	}

	for _, site := range enabled {
		parsed, err := url.Parse(site.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("site %q has invalid base URL %q", site.Name, site.BaseURL)
		}
	}

	if c.Options.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Options.Concurrency)
	}
	if c.Options.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative, got %d", c.Options.MaxPages)
	}

	if c.Auth.Enabled && (c.Auth.Email == "" || c.Auth.Password == "") {
		return fmt.Errorf("auth enabled but %s or %s is not set", EnvEmail, EnvPassword)
	}

	switch c.State.Backend {
	case "", "bolt", "file":
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Sites = append([]SiteConfig(nil), c.Sites...)
	clone.SeedPaths = append([]string(nil), c.SeedPaths...)
	clone.ProtectedPaths = append([]string(nil), c.ProtectedPaths...)
	clone.AdminPaths = append([]string(nil), c.AdminPaths...)
	clone.ExcludePatterns = append([]string(nil), c.ExcludePatterns...)
	return &clone
}
