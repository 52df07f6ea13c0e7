// Package config loads the triage.yaml configuration file.
//
// The file overlays the engine defaults: any key left out keeps its default
// value. TRIAGE_* environment variables are applied after the file by
// deduplication.ApplyEnv.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deskops/mailtriage/internal/deduplication"
	"github.com/deskops/mailtriage/internal/similarity"
)

// DefaultFileName is the configuration file looked up by the CLI
const DefaultFileName = "triage.yaml"

// File is the layout of triage.yaml
type File struct {
	Scoring    similarity.Config `yaml:"scoring"`
	Matching   MatchingConfig    `yaml:"matching"`
	Grouping   GroupingConfig    `yaml:"grouping"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	Server     ServerConfig      `yaml:"server"`
}

// MatchingConfig configures the ticket matcher
type MatchingConfig struct {
	MinMatchScore int `yaml:"min_match_score"`
}

// GroupingConfig configures group summaries
type GroupingConfig struct {
	CommonKeywordLimit int `yaml:"common_keyword_limit"`
}

// ExtractionConfig configures entity extraction
type ExtractionConfig struct {
	MaxKeywords int  `yaml:"max_keywords"`
	StripHTML   bool `yaml:"strip_html"`
}

// Default returns a File holding the engine and server defaults
func Default() *File {
	engine := deduplication.DefaultConfig()
	return &File{
		Scoring:    engine.Scoring,
		Matching:   MatchingConfig{MinMatchScore: engine.MinMatchScore},
		Grouping:   GroupingConfig{CommonKeywordLimit: engine.CommonKeywordLimit},
		Extraction: ExtractionConfig{MaxKeywords: engine.MaxKeywords, StripHTML: engine.StripHTML},
		Server:     DefaultServerConfig(),
	}
}

// Load reads a YAML configuration file on top of the defaults.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults
func Parse(data []byte) (*File, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and returns the defaults otherwise
func LoadOrDefault(path string) (*File, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Write saves the configuration as YAML, creating parent directories
func (f *File) Write(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Engine converts the file into the engine configuration
func (f *File) Engine() deduplication.Config {
	return deduplication.Config{
		MinMatchScore:      f.Matching.MinMatchScore,
		Scoring:            f.Scoring,
		MaxKeywords:        f.Extraction.MaxKeywords,
		CommonKeywordLimit: f.Grouping.CommonKeywordLimit,
		StripHTML:          f.Extraction.StripHTML,
	}
}

// Validate checks both the engine and the server sections
func (f *File) Validate() error {
	if err := f.Engine().Validate(); err != nil {
		return err
	}
	if err := f.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	// Addr is the listen address
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// DBPath is the SQLite snapshot store read by GET /api/v1/analyze
	// Default: "triage.db"
	DBPath string `yaml:"db_path"`

	// RatePerSecond is the sustained request rate allowed per client IP
	// Default: 2, Range: 0.1-1000
	RatePerSecond float64 `yaml:"rate_per_second"`

	// RateBurst is the number of requests a client may make at once
	// Default: 5, Range: 1-1000
	RateBurst int `yaml:"rate_burst"`

	// ShutdownTimeoutSecs bounds graceful shutdown
	// Default: 10, Range: 1-300
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs"`

	// MaxBodyBytes caps the size of a POSTed snapshot
	// Default: 10 MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:                ":8080",
		DBPath:              "triage.db",
		RatePerSecond:       2,
		RateBurst:           5,
		ShutdownTimeoutSecs: 10,
		MaxBodyBytes:        10 << 20,
	}
}

// Validate checks if the configuration has valid values
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.RatePerSecond < 0.1 || c.RatePerSecond > 1000 {
		return fmt.Errorf("rate_per_second must be between 0.1 and 1000 (got %.2f)", c.RatePerSecond)
	}
	if c.RateBurst < 1 || c.RateBurst > 1000 {
		return fmt.Errorf("rate_burst must be between 1 and 1000 (got %d)", c.RateBurst)
	}
	if c.ShutdownTimeoutSecs < 1 || c.ShutdownTimeoutSecs > 300 {
		return fmt.Errorf("shutdown_timeout_secs must be between 1 and 300 (got %d)", c.ShutdownTimeoutSecs)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("max_body_bytes must be at least 1024 (got %d)", c.MaxBodyBytes)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c ServerConfig) String() string {
	return fmt.Sprintf(
		"ServerConfig{Addr: %s, DB: %s, Rate: %.1f/s, Burst: %d, Shutdown: %ds}",
		c.Addr, c.DBPath, c.RatePerSecond, c.RateBurst, c.ShutdownTimeoutSecs,
	)
}

// ShutdownTimeout returns the shutdown bound as a time.Duration
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}
