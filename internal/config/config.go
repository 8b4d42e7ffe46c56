// Package config loads crawl configuration from a YAML file and merges CLI
// flag overrides on top, per §6. Grounded on the teacher's internal/config
// (WithDefault + DTO-merge pattern) and the source's crawler/config_loader.py,
// translated from JSON to YAML per the DOMAIN STACK's gopkg.in/yaml.v3
// adoption, and narrowed to the key set spec.md §6 actually recognizes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devctx/asyncrawler/internal/envutil"
)

// Crawler holds the crawler.* YAML keys.
type Crawler struct {
	MaxConcurrent   int      `yaml:"max_concurrent"`
	MaxDepth        int      `yaml:"max_depth"`
	RateLimit       float64  `yaml:"rate_limit"`
	RespectRobots   bool     `yaml:"respect_robots"`
	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	AllowedDomains  []string `yaml:"allowed_domains"`
}

// Storage holds the storage.* YAML keys.
type Storage struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// Config is the fully resolved crawl configuration, after YAML load and CLI
// override merge.
type Config struct {
	StartURLs []string `yaml:"start_urls"`
	MaxPages  int      `yaml:"max_pages"`
	Crawler   Crawler  `yaml:"crawler"`
	Storage   Storage  `yaml:"storage"`
	LogFile   string   `yaml:"log_file"`
	LogLevel  string   `yaml:"log_level"`
}

// Default returns the baseline configuration applied before a YAML file or
// CLI flags are merged in, matching the HTTP client and politeness defaults
// named in §6.
func Default() Config {
	return Config{
		MaxPages: 100,
		Crawler: Crawler{
			MaxConcurrent: 10,
			MaxDepth:      3,
			RateLimit:     1.0,
			RespectRobots: true,
		},
		Storage: Storage{
			Type: "json",
			Path: "output.jsonl",
		},
		LogLevel: "INFO",
	}
}

// Load reads path as YAML and merges it over Default(). A missing or
// unreadable file is a fatal configuration error per §6's CLI exit code
// contract.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv merges a fixed set of ASYNCRAWLER_* environment variables over
// cfg, sitting between the YAML file and CLI flags in precedence: a flag
// always wins, an env var wins over the file, matching the teacher's env
// package used for container-friendly deployment overrides.
func ApplyEnv(cfg Config) Config {
	cfg.MaxPages = envutil.GetEnvAsInt("ASYNCRAWLER_MAX_PAGES", cfg.MaxPages)
	cfg.Crawler.MaxDepth = envutil.GetEnvAsInt("ASYNCRAWLER_MAX_DEPTH", cfg.Crawler.MaxDepth)
	cfg.Crawler.MaxConcurrent = envutil.GetEnvAsInt("ASYNCRAWLER_MAX_CONCURRENT", cfg.Crawler.MaxConcurrent)
	cfg.Crawler.RateLimit = envutil.GetEnvAsFloat("ASYNCRAWLER_RATE_LIMIT", cfg.Crawler.RateLimit)
	cfg.Crawler.RespectRobots = envutil.GetEnvAsBool("ASYNCRAWLER_RESPECT_ROBOTS", cfg.Crawler.RespectRobots)
	cfg.Storage.Path = envutil.GetEnv("ASYNCRAWLER_OUTPUT", cfg.Storage.Path)
	cfg.LogFile = envutil.GetEnv("ASYNCRAWLER_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = envutil.GetEnv("ASYNCRAWLER_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

// Overrides carries CLI flag values; a zero value (empty string, 0, nil)
// means "flag not set, keep the config value", matching the teacher's
// non-zero-wins DTO merge.
type Overrides struct {
	URLs          []string
	MaxPages      int
	MaxDepth      int
	MaxConcurrent int
	RateLimit     float64
	RespectRobots *bool
	Output        string
	LogFile       string
}

// ApplyOverrides merges non-zero CLI flag values on top of cfg, returning
// the merged Config. CLI flags win over the config file, per §6.
func ApplyOverrides(cfg Config, o Overrides) Config {
	if len(o.URLs) > 0 {
		cfg.StartURLs = o.URLs
	}
	if o.MaxPages != 0 {
		cfg.MaxPages = o.MaxPages
	}
	if o.MaxDepth != 0 {
		cfg.Crawler.MaxDepth = o.MaxDepth
	}
	if o.MaxConcurrent != 0 {
		cfg.Crawler.MaxConcurrent = o.MaxConcurrent
	}
	if o.RateLimit != 0 {
		cfg.Crawler.RateLimit = o.RateLimit
	}
	if o.RespectRobots != nil {
		cfg.Crawler.RespectRobots = *o.RespectRobots
	}
	if o.Output != "" {
		cfg.Storage.Path = o.Output
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
	return cfg
}

// Validate checks the fields the orchestrator cannot recover from: no seed
// URLs is a fatal misconfiguration per §6's CLI exit code contract.
func (c Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return fmt.Errorf("config: start_urls must not be empty")
	}
	return nil
}

// MinDelay derives the rate limiter's minimum inter-request delay from
// rate_limit (requests per second); a non-positive rate_limit means no
// floor beyond the computed interval.
func (c Config) MinDelay() time.Duration {
	if c.Crawler.RateLimit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.Crawler.RateLimit)
}
