// Command asyncrawler runs an asynchronous web crawl from a YAML config
// file, optionally overridden by CLI flags, per §6. Grounded on the
// rohmanhakim-docs-crawler CLI's cobra root command (flag set, config-file
// precedence) adapted to the internal/config and internal/crawler packages
// this module actually wires, since the teacher repo carries no CLI of its
// own.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devctx/asyncrawler/internal/config"
	"github.com/devctx/asyncrawler/internal/crawler"
	"github.com/devctx/asyncrawler/internal/messaging"
	"github.com/devctx/asyncrawler/internal/sink"
)

var (
	urls          []string
	maxPages      int
	maxDepth      int
	maxConcurrent int
	rateLimit     float64
	respectRobots bool
	cfgFile       string
	output        string
	logFile       string
)

var rootCmd = &cobra.Command{
	Use:   "asyncrawler",
	Short: "An asynchronous, politeness-aware web crawler.",
	Long: `asyncrawler walks a set of seed URLs breadth-first up to a
configurable depth and page budget, respecting robots.txt, per-host rate
limits, and a circuit breaker for misbehaving hosts, persisting every page
it parses to a pluggable sink (JSON Lines, CSV, or SQLite).`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringArrayVar(&urls, "urls", nil, "one or more seed URLs (can be repeated)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages to fetch")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth from a seed URL")
	rootCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "number of concurrent fetch workers")
	rootCmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "maximum requests per second per host")
	rootCmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "honor robots.txt (overrides config when set)")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&output, "output", "", "output file path for the configured sink")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("asyncrawler: %w", err)
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)

	overrides := config.Overrides{
		URLs:          urls,
		MaxPages:      maxPages,
		MaxDepth:      maxDepth,
		MaxConcurrent: maxConcurrent,
		RateLimit:     rateLimit,
		Output:        output,
		LogFile:       logFile,
	}
	if cmd.Flags().Changed("respect-robots") {
		overrides.RespectRobots = &respectRobots
	}
	cfg = config.ApplyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("asyncrawler: %w", err)
	}

	logOut := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("asyncrawler: cannot open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.New(logOut, "asyncrawler: ", log.LstdFlags)

	persist, err := buildSink(cfg.Storage)
	if err != nil {
		return fmt.Errorf("asyncrawler: %w", err)
	}
	dest := sink.NewBusSink(messaging.NewChannelQueue(64), persist, logger)
	defer dest.Close()

	settings := crawler.Settings{
		MaxPages:       cfg.MaxPages,
		MaxDepth:       cfg.Crawler.MaxDepth,
		MaxConcurrent:  cfg.Crawler.MaxConcurrent,
		RateLimit:      cfg.Crawler.RateLimit,
		MinDelay:       cfg.MinDelay(),
		RespectRobots:  cfg.Crawler.RespectRobots,
		AllowedDomains: cfg.Crawler.AllowedDomains,
		IncludeRegex:   cfg.Crawler.IncludePatterns,
		ExcludeRegex:   cfg.Crawler.ExcludePatterns,
		Logger:         logger,
	}

	c := crawler.New(settings, dest)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx, cfg.StartURLs); err != nil {
		return fmt.Errorf("asyncrawler: crawl failed: %w", err)
	}

	summary := c.Stats()
	logger.Println(summary.ProgressLine())
	for url, reason := range c.Failed() {
		logger.Printf("failed: %s (%s)", url, reason)
	}

	return nil
}

// buildSink constructs the Sink named by storage.type, defaulting to JSON
// Lines when the type is unset. An unrecognized type is an error.
func buildSink(st config.Storage) (sink.Sink, error) {
	path := st.Path
	if path == "" {
		path = "output.jsonl"
	}

	switch st.Type {
	case "csv":
		return sink.NewCSVSink(path, 50)
	case "sqlite":
		return sink.NewSQLiteSink(path, 50)
	case "json", "":
		return sink.NewJSONSink(path, 50)
	default:
		return nil, fmt.Errorf("unknown storage type %q", st.Type)
	}
}
