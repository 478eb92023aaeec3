package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/poolatlas/siteauditor/internal/logger"
	"github.com/poolatlas/siteauditor/internal/output"
	"github.com/poolatlas/siteauditor/internal/shutdown"
	"github.com/poolatlas/siteauditor/pkg/crawler"
)

var version = "1.0.0"

// Built-in site definitions. A config file can replace these entirely.
var knownSites = map[string]crawler.SiteConfig{
	"local":      {Name: "local", BaseURL: "http://localhost:3000"},
	"staging":    {Name: "staging", BaseURL: "https://staging.poolatlas.com"},
	"production": {Name: "production", BaseURL: "https://www.poolatlas.com"},
}

var (
	configFile string
	verbose    bool
	debug      bool

	useLocal      bool
	useStaging    bool
	useProduction bool

	withAuth  bool
	withAdmin bool

	maxPages    int
	concurrency int
	batchDelay  time.Duration
	outputFile  string
	stateFile   string
	noResume    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "siteauditor",
		Short: "SEO site auditor",
		Long: `siteauditor crawls one or more environments of a site with a headless
browser, extracts SEO metadata from every rendered page, verifies links, and
writes a severity-ranked issue report.`,
		Version:       version,
		RunE:          runAudit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug output (JSON logs)")

	rootCmd.Flags().BoolVar(&useLocal, "local", false, "Audit the local environment")
	rootCmd.Flags().BoolVar(&useStaging, "staging", false, "Audit the staging environment")
	rootCmd.Flags().BoolVar(&useProduction, "production", false, "Audit the production environment")

	rootCmd.Flags().BoolVar(&withAuth, "auth", false,
		fmt.Sprintf("Log in first (credentials from %s / %s)", crawler.EnvEmail, crawler.EnvPassword))
	rootCmd.Flags().BoolVar(&withAdmin, "admin", false, "Also crawl admin pages (implies --auth)")

	rootCmd.Flags().IntVar(&maxPages, "max", 0, "Maximum pages to crawl (0 = unlimited)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel page crawls per batch")
	rootCmd.Flags().DurationVar(&batchDelay, "delay", 0, "Delay between crawl batches")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Report file path (default stdout)")
	rootCmd.Flags().StringVar(&stateFile, "state-file", "", "Persist crawl state here for resumable runs")
	rootCmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore any saved state and start fresh")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig() (*crawler.Config, error) {
	var config *crawler.Config

	if configFile != "" {
		loaded, err := crawler.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		config = crawler.DefaultConfig()
	}

	// Environment flags add to whatever the file enabled. Order matters:
	// the first enabled site's base URL anchors link normalization.
	selected := []struct {
		name    string
		enabled bool
	}{
		{"local", useLocal},
		{"staging", useStaging},
		{"production", useProduction},
	}
	for _, env := range selected {
		if !env.enabled {
			continue
		}
		name := env.name
		site := knownSites[name]
		site.Enabled = true
		site.CrawlProtected = withAuth || withAdmin
		site.CrawlAdmin = withAdmin
		config.Sites = append(config.Sites, site)
	}

	if withAuth || withAdmin {
		config.Auth.Enabled = true
	}
	config.LoadCredentialsFromEnv()

	if maxPages > 0 {
		config.Options.MaxPages = maxPages
	}
	if concurrency > 0 {
		config.Options.Concurrency = concurrency
	}
	if batchDelay > 0 {
		config.Options.BatchDelay = batchDelay
	}
	if outputFile != "" {
		config.Output.FilePath = outputFile
	}
	if stateFile != "" {
		config.State.Enabled = true
		config.State.Path = stateFile
	}
	if noResume {
		config.State.Enabled = false
	}
	config.Verbose = verbose
	config.Debug = debug

	return config, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	config, err := buildConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  logLevel(),
		Pretty: !debug,
		Output: os.Stderr,
	})
	logger.SetGlobal(log)

	c, err := crawler.New(config)
	if err != nil {
		return err
	}

	handler := shutdown.New(30 * time.Second)
	c.RegisterShutdown(handler)
	handler.Listen()

	printBanner(config)

	start := time.Now()
	report, err := c.Run(handler.Context())
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	writer, err := output.NewWriter(output.Config{
		Format:   config.Output.Format,
		Pretty:   config.Output.Pretty,
		FilePath: config.Output.FilePath,
	})
	if err != nil {
		return err
	}
	if err := writer.WriteReport(report); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}

	printSummary(report, time.Since(start))

	if report.HasCritical() {
		return fmt.Errorf("audit found critical issues")
	}
	return nil
}

func logLevel() logger.Level {
	if debug || verbose {
		return logger.DebugLevel
	}
	return logger.InfoLevel
}

func printBanner(config *crawler.Config) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "siteauditor v%s\n", version)
	for _, site := range config.EnabledSites() {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", site.Name, site.BaseURL)
	}
	fmt.Fprintf(os.Stderr, "  concurrency %d", config.Options.Concurrency)
	if config.Options.MaxPages > 0 {
		fmt.Fprintf(os.Stderr, ", max %d pages", config.Options.MaxPages)
	}
	if config.Auth.Enabled {
		fmt.Fprint(os.Stderr, ", authenticated")
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr)
}

func printSummary(report *crawler.CrawlReport, duration time.Duration) {
	stats := report.Stats

	var critical, warning, info int
	for _, issue := range report.Issues {
		switch issue.Severity {
		case crawler.SeverityCritical:
			critical++
		case crawler.SeverityWarning:
			warning++
		default:
			info++
		}
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Audit Summary")
	fmt.Fprintf(os.Stderr, "  Duration:        %v\n", duration.Round(time.Second))
	fmt.Fprintf(os.Stderr, "  Pages crawled:   %d (%d ok, %d failed)\n",
		stats.TotalPages, stats.SuccessfulPages, stats.FailedPages)
	fmt.Fprintf(os.Stderr, "  Avg load time:   %dms\n", stats.AverageLoadTimeMs)
	fmt.Fprintf(os.Stderr, "  Broken links:    %d\n", len(report.BrokenLinks))
	fmt.Fprintf(os.Stderr, "  Issues:          %d critical, %d warning, %d info\n",
		critical, warning, info)

	if critical > 0 {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Critical issues:")
		shown := 0
		for _, issue := range report.Issues {
			if issue.Severity != crawler.SeverityCritical {
				continue
			}
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", issue.Category, issue.URL, issue.Message)
			shown++
			if shown == 10 && critical > 10 {
				fmt.Fprintf(os.Stderr, "  ... and %d more\n", critical-shown)
				break
			}
		}
	}
	fmt.Fprintln(os.Stderr)
}
