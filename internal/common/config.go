package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Render      RenderConfig    `toml:"render"`
	Generators  GeneratorConfig `toml:"generators"`
	Scrapers    ScraperConfig   `toml:"scrapers"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Webhook     WebhookConfig   `toml:"webhook"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port    int    `toml:"port"`
	Host    string `toml:"host"`
	BaseURL string `toml:"base_url"` // Public base URL embedded in QR codes and hosted-site links
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FilesystemConfig holds the output directories produced by generators and scrapers.
type FilesystemConfig struct {
	Sites       string `toml:"sites"`        // Generated site HTML/PDF output
	HostedSites string `toml:"hosted_sites"` // Publicly served site copies
	Letters     string `toml:"letters"`      // Generated letter PDFs
	QRCodes     string `toml:"qr_codes"`     // Generated QR images
	ScraperData string `toml:"scraper_data"` // Scrape result JSON files
	Templates   string `toml:"templates"`    // Optional template override directory
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before dead-letter
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
}

// RenderConfig controls the headless-browser PDF engine.
type RenderConfig struct {
	Enabled    bool   `toml:"enabled"` // When false, generators use the native fpdf path
	Headless   bool   `toml:"headless"`
	NoSandbox  bool   `toml:"no_sandbox"`
	DisableGPU bool   `toml:"disable_gpu"`
	PoolSize   int    `toml:"pool_size"` // Number of pooled browser contexts
	Timeout    string `toml:"timeout"`   // Per-render timeout, e.g. "30s"
}

type GeneratorConfig struct {
	QRWidth     int  `toml:"qr_width"`     // Default QR image width in pixels
	ValidatePDF bool `toml:"validate_pdf"` // Run pdfcpu validation on rendered output
}

// ScraperConfig controls dynamic scrape script execution.
type ScraperConfig struct {
	StagingDir     string `toml:"staging_dir"`      // Where script bodies are materialized before execution
	ScriptTimeout  string `toml:"script_timeout"`   // Hard interrupt timeout for a script run, e.g. "60s"
	FetchRateLimit string `toml:"fetch_rate_limit"` // Min interval between httpGet calls from scripts, e.g. "500ms"
	FetchTimeout   string `toml:"fetch_timeout"`    // HTTP timeout for the httpGet helper
}

type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
}

type WebhookConfig struct {
	URL     string `toml:"url"`     // Outbound notification endpoint; empty disables notifications
	Timeout string `toml:"timeout"` // e.g., "10s"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:    8085,
			Host:    "localhost",
			BaseURL: "http://localhost:8085",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/badger",
				ResetOnStartup: false,
			},
			Filesystem: FilesystemConfig{
				Sites:       "./data/sites",
				HostedSites: "./data/hosted-sites",
				Letters:     "./data/letters",
				QRCodes:     "./data/qr",
				ScraperData: "./data/scrapers",
				Templates:   "",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       2,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "applyforge",
		},
		Render: RenderConfig{
			Enabled:    true,
			Headless:   true,
			NoSandbox:  true,
			DisableGPU: true,
			PoolSize:   2,
			Timeout:    "30s",
		},
		Generators: GeneratorConfig{
			QRWidth:     200,
			ValidatePDF: true,
		},
		Scrapers: ScraperConfig{
			StagingDir:     "", // Defaults to os.TempDir()/applyforge-scripts
			ScriptTimeout:  "60s",
			FetchRateLimit: "500ms",
			FetchTimeout:   "30s",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
		Webhook: WebhookConfig{
			URL:     "",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("APPLYFORGE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("APPLYFORGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("APPLYFORGE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if baseURL := os.Getenv("APPLYFORGE_BASE_URL"); baseURL != "" {
		config.Server.BaseURL = baseURL
	}

	if badgerPath := os.Getenv("APPLYFORGE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if dataDir := os.Getenv("APPLYFORGE_SCRAPER_DATA"); dataDir != "" {
		config.Storage.Filesystem.ScraperData = dataDir
	}

	if concurrency := os.Getenv("APPLYFORGE_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}

	if webhookURL := os.Getenv("APPLYFORGE_WEBHOOK_URL"); webhookURL != "" {
		config.Webhook.URL = webhookURL
	}

	if level := os.Getenv("APPLYFORGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("APPLYFORGE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running with a production environment setting
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ParseDurationOr parses a duration string, falling back to def on empty or invalid input.
func ParseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
