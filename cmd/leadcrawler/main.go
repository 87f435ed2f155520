package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/output"
	"github.com/PentesterFlow/LeadCrawler/internal/shutdown"
	"github.com/PentesterFlow/LeadCrawler/pkg/crawler"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool
	logLevel   string

	// Crawl flags
	maxResults     int
	outputFile     string
	headless       bool
	maxIdleScrolls int
	fetchTimeout   int

	// Display flags
	showProgress bool

	// Config flags
	force bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leadcrawler",
		Short: "LeadCrawler - business listing harvester",
		Long: `LeadCrawler - harvests business listings from a map search results page.

Opens every listing in the infinite-scroll feed, reads its website, phone,
address, rating and coordinates, looks up a business email on the website
and appends each new business to a CSV file.`,
		Version: version,
	}

	// Crawl command
	crawlCmd := &cobra.Command{
		Use:   "crawl [target]",
		Short: "Harvest listings from a search results page",
		Long:  "Harvest listings from a search results page until --max-results rows are written.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCrawl,
	}

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Long:  "Write the default configuration to path (default leadcrawler.yaml). A .json path writes JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("leadcrawler %s\n", version)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides -v and --debug")

	// Crawl flags
	crawlCmd.Flags().IntVarP(&maxResults, "max-results", "n", 1000, "Number of rows to write before stopping")
	crawlCmd.Flags().StringVarP(&outputFile, "output", "o", "results.csv", "CSV file to append to")
	crawlCmd.Flags().BoolVar(&headless, "headless", false, "Run the browser without a window")
	crawlCmd.Flags().IntVar(&maxIdleScrolls, "max-idle-scrolls", 0, "Stop after this many scrolls without new listings (0 = never)")
	crawlCmd.Flags().IntVar(&fetchTimeout, "fetch-timeout", 10, "Website fetch timeout in seconds")
	crawlCmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress bar during harvesting")

	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	// Add commands
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig loads the config file if given and applies flags on top.
func buildConfig(cmd *cobra.Command, args []string) (*crawler.Config, error) {
	config := crawler.DefaultConfig()
	if configFile != "" {
		fileConfig, err := crawler.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	if len(args) == 1 {
		config.Target = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("max-results") || configFile == "" {
		config.MaxResults = maxResults
	}
	if flags.Changed("output") || configFile == "" {
		config.Output.FilePath = outputFile
	}
	if flags.Changed("headless") {
		config.Browser.Headless = headless
	}
	if flags.Changed("max-idle-scrolls") {
		config.Scroll.MaxIdleScrolls = maxIdleScrolls
	}
	if flags.Changed("fetch-timeout") {
		config.Enrichment.Timeout = time.Duration(fetchTimeout) * time.Second
	}
	if verbose {
		config.Verbose = true
	}
	if debug {
		config.Debug = true
	}

	return config, config.Validate()
}

func runCrawl(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	enableProgress := showProgress && !verbose && !debug

	handler := shutdown.New(shutdown.Config{
		OnSignal: func(sig os.Signal) {
			fmt.Fprintf(os.Stderr, "\nReceived %s, stopping...\n", sig)
		},
	})

	writer, err := output.NewWriter(config.Output)
	if err != nil {
		handler.Shutdown()
		return err
	}

	if !enableProgress {
		printBanner(config)
	} else {
		fmt.Println()
		fmt.Printf("LeadCrawler v%s - Starting harvest...\n", version)
		fmt.Printf("Target: %s\n", config.Target)
		fmt.Println()
	}

	b, err := browser.New(config.Browser)
	if err != nil {
		handler.Shutdown()
		return fmt.Errorf("failed to start browser: %w", err)
	}
	handler.Register("browser", func(ctx context.Context) error {
		return b.Close()
	})
	handler.Register("writer", func(ctx context.Context) error {
		if err := writer.Flush(); err != nil {
			return err
		}
		return writer.Close()
	})

	opts := []crawler.Option{
		crawler.WithConfig(config),
		crawler.WithProgress(enableProgress),
		crawler.WithBrowser(b),
		crawler.WithWriter(writer),
	}
	if logLevel != "" {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			handler.Shutdown()
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		opts = append(opts, crawler.WithLogLevel(level))
	}

	c, err := crawler.New(opts...)
	if err != nil {
		handler.Shutdown()
		return fmt.Errorf("failed to create crawler: %w", err)
	}
	handler.RegisterFunc("crawler", func() { _ = c.Stop() })

	result, err := c.Start(handler.Context())

	if res := handler.Shutdown(); res.HasErrors() {
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "Shutdown: %v\n", e)
		}
	}

	if handler.Interrupted() {
		fmt.Fprintf(os.Stderr, "Interrupted by %s; rows already written to %s are kept\n", handler.Signal(), config.Output.FilePath)
	}

	if err != nil {
		if errors.IsCancelled(err) {
			return nil
		}
		return fmt.Errorf("crawl failed: %w", err)
	}

	// Progress mode prints its own summary
	if result != nil && !enableProgress {
		printSummary(result)
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "leadcrawler.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := crawler.DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func printBanner(config *crawler.Config) {
	mode := "headed"
	if config.Browser.Headless {
		mode = "headless"
	}
	idle := "never"
	if config.Scroll.MaxIdleScrolls > 0 {
		idle = fmt.Sprintf("after %d idle scrolls", config.Scroll.MaxIdleScrolls)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       LeadCrawler v1.0                       ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Target:      %s\n", config.Target)
	fmt.Printf("Max Results: %d\n", config.MaxResults)
	fmt.Printf("Output:      %s\n", config.Output.FilePath)
	fmt.Printf("Browser:     %s (%s)\n", mode, config.Browser.Locale)
	fmt.Printf("Give up:     %s\n", idle)
	fmt.Println()
	fmt.Println("Starting harvest...")
	fmt.Println()
}

func printSummary(result *crawler.CrawlResult) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       Harvest Summary                        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Duration:        %v\n", result.Duration().Round(time.Second))
	fmt.Printf("Stopped:         %s\n", result.StopReason)
	fmt.Printf("Saved:           %d/%d\n", result.Saved, result.Budget)
	fmt.Printf("Skipped:         %d\n", result.SkippedTotal())
	fmt.Printf("Errors:          %d\n", len(result.Errors))
	fmt.Printf("Passes:          %d\n", result.Passes)
	fmt.Printf("Scrolls:         %d\n", result.Scrolls)
	if result.Metrics != nil {
		fmt.Printf("Emails found:    %d/%d (%.0f%%)\n",
			result.Metrics.EmailsFound, result.Metrics.FetchesTotal, result.Metrics.EmailHitRate()*100)
	}
	fmt.Printf("Output:          %s\n", result.OutputPath)
	fmt.Println()

	if len(result.Skipped) > 0 {
		reasons := make([]string, 0, len(result.Skipped))
		for r := range result.Skipped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)

		fmt.Println("Skipped by reason:")
		for _, r := range reasons {
			fmt.Printf("  %-20s %d\n", r, result.Skipped[r])
		}
		fmt.Println()
	}

	if len(result.Errors) > 0 {
		fmt.Println("Recent errors:")
		start := len(result.Errors) - 5
		if start < 0 {
			start = 0
		}
		for _, e := range result.Errors[start:] {
			fmt.Printf("  [%s] %s: %s\n", e.Type, e.Operation, e.Listing)
		}
		fmt.Println()
	}
}
