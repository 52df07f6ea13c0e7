package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/deskops/mailtriage/internal/extraction"
	"github.com/deskops/mailtriage/internal/grouping"
	"github.com/deskops/mailtriage/internal/similarity"
)

// Config holds configuration for the cross-analysis engine
type Config struct {
	// MinMatchScore is the lowest email/ticket score reported as a match.
	// It sits below the pairwise related threshold on purpose so weaker
	// candidates still reach a human.
	// Default: 30
	MinMatchScore int

	// Scoring holds the point weights and thresholds of the scoring model
	Scoring similarity.Config

	// MaxKeywords caps the keywords extracted per email or ticket
	// Default: 15
	MaxKeywords int

	// CommonKeywordLimit caps the shared keywords reported per group
	// Default: 5
	CommonKeywordLimit int

	// StripHTML converts HTML email bodies to text before extraction
	// Default: true
	StripHTML bool
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		MinMatchScore:      30,
		Scoring:            similarity.DefaultConfig(),
		MaxKeywords:        extraction.DefaultMaxKeywords,
		CommonKeywordLimit: grouping.DefaultCommonKeywordLimit,
		StripHTML:          true,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MinMatchScore < 0 || c.MinMatchScore > 100 {
		return fmt.Errorf("min_match_score must be between 0 and 100 (got %d)", c.MinMatchScore)
	}
	if c.MaxKeywords <= 0 {
		return fmt.Errorf("max_keywords must be positive (got %d)", c.MaxKeywords)
	}
	if c.MaxKeywords > 100 {
		return fmt.Errorf("max_keywords too large (got %d, max 100)", c.MaxKeywords)
	}
	if c.CommonKeywordLimit <= 0 {
		return fmt.Errorf("common_keyword_limit must be positive (got %d)", c.CommonKeywordLimit)
	}
	if c.CommonKeywordLimit > c.MaxKeywords {
		return fmt.Errorf("common_keyword_limit (%d) cannot exceed max_keywords (%d)",
			c.CommonKeywordLimit, c.MaxKeywords)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{MinMatch: %d, Related: %d, Duplicate: %d, Confidence: %d/%d, "+
			"Window: %.1fd, MaxKeywords: %d, CommonKeywords: %d, StripHTML: %t, Open: %s}",
		c.MinMatchScore, c.Scoring.RelatedThreshold, c.Scoring.DuplicateThreshold,
		c.Scoring.MediumConfidence, c.Scoring.HighConfidence, c.Scoring.TimeWindowDays,
		c.MaxKeywords, c.CommonKeywordLimit, c.StripHTML, strings.Join(c.Scoring.OpenStatuses, ","),
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults.
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overlays environment variables onto cfg and validates the result.
//
// Environment variables:
//   - TRIAGE_MIN_MATCH_SCORE: Lowest ticket match score reported (default: 30)
//   - TRIAGE_DUPLICATE_THRESHOLD: Match score that makes an open ticket a duplicate (default: 60)
//   - TRIAGE_RELATED_THRESHOLD: Pair score at which two emails are grouped (default: 50)
//   - TRIAGE_HIGH_CONFIDENCE: Lower bound of the high confidence tier (default: 70)
//   - TRIAGE_MEDIUM_CONFIDENCE: Lower bound of the medium confidence tier (default: 45)
//   - TRIAGE_TIME_WINDOW_DAYS: Proximity window for the time bonus (default: 7)
//   - TRIAGE_MAX_KEYWORDS: Keywords kept per email or ticket (default: 15)
//   - TRIAGE_OPEN_STATUSES: Comma-separated ticket statuses treated as open
//     (default: open,in-progress,pending,new)
//   - TRIAGE_STRIP_HTML: Convert HTML bodies to text (default: true)
func ApplyEnv(cfg Config) (Config, error) {
	if err := parseEnvInt("TRIAGE_MIN_MATCH_SCORE", &cfg.MinMatchScore); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_DUPLICATE_THRESHOLD", &cfg.Scoring.DuplicateThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_RELATED_THRESHOLD", &cfg.Scoring.RelatedThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_HIGH_CONFIDENCE", &cfg.Scoring.HighConfidence); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_MEDIUM_CONFIDENCE", &cfg.Scoring.MediumConfidence); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("TRIAGE_TIME_WINDOW_DAYS", &cfg.Scoring.TimeWindowDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_MAX_KEYWORDS", &cfg.MaxKeywords); err != nil {
		return cfg, err
	}
	if err := parseEnvList("TRIAGE_OPEN_STATUSES", &cfg.Scoring.OpenStatuses); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("TRIAGE_STRIP_HTML", &cfg.StripHTML); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvList parses a comma-separated list from an environment variable.
// Blank entries are dropped; a value with no entries is an error.
func parseEnvList(key string, dest *[]string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fmt.Errorf("invalid value for %s: no entries in %q", key, value)
	}
	*dest = items
	return nil
}
