package similarity

import (
	"fmt"

	"github.com/deskops/mailtriage/internal/types"
)

// Config holds the point weights and thresholds of the scoring model.
// Each signal adds its points when present; the total is clamped to [0,100].
type Config struct {
	// Email/email signals
	SameDomainPoints      int `yaml:"same_domain_points"`
	SameSenderPoints      int `yaml:"same_sender_points"`
	SharedReferencePoints int `yaml:"shared_reference_points"`
	ProductPoints         int `yaml:"product_points"`
	IssueTypePoints       int `yaml:"issue_type_points"`

	// KeywordOverlapThreshold is the overlap ratio that must be exceeded
	// before KeywordOverlapPoints*ratio is added
	KeywordOverlapThreshold float64 `yaml:"keyword_overlap_threshold"`
	KeywordOverlapPoints    int     `yaml:"keyword_overlap_points"`

	// TimeWindowDays is how close two emails must be for the proximity bonus,
	// which decays by TimeDecayPoints per day
	TimeWindowDays  float64 `yaml:"time_window_days"`
	TimeDecayPoints float64 `yaml:"time_decay_points"`

	// Email/ticket signals
	TicketReferencePoints int `yaml:"ticket_reference_points"`
	TicketProductPoints   int `yaml:"ticket_product_points"`
	TicketProductCap      int `yaml:"ticket_product_cap"`
	TicketIssueTypePoints int `yaml:"ticket_issue_type_points"`
	SenderMentionPoints   int `yaml:"sender_mention_points"`
	TitleOverlapPoints    int `yaml:"title_overlap_points"`
	TitleOverlapMinWords  int `yaml:"title_overlap_min_words"`

	// RelatedThreshold is the pair score at which two emails are likely related
	RelatedThreshold int `yaml:"related_threshold"`

	// MediumConfidence and HighConfidence are the lower bounds of the tiers
	MediumConfidence int `yaml:"medium_confidence"`
	HighConfidence   int `yaml:"high_confidence"`

	// DuplicateThreshold is the match score at which an open ticket is a duplicate
	DuplicateThreshold int `yaml:"duplicate_threshold"`

	// OpenStatuses are the ticket statuses eligible for duplicate detection
	OpenStatuses []string `yaml:"open_statuses"`
}

// DefaultConfig returns the standard scoring model
func DefaultConfig() Config {
	return Config{
		SameDomainPoints:        15,
		SameSenderPoints:        20,
		SharedReferencePoints:   40, // shared order/ticket ids dominate
		ProductPoints:           10,
		IssueTypePoints:         15,
		KeywordOverlapThreshold: 0.3,
		KeywordOverlapPoints:    25,
		TimeWindowDays:          7,
		TimeDecayPoints:         2,
		TicketReferencePoints:   50,
		TicketProductPoints:     15,
		TicketProductCap:        2,
		TicketIssueTypePoints:   15,
		SenderMentionPoints:     20,
		TitleOverlapPoints:      10,
		TitleOverlapMinWords:    2,
		RelatedThreshold:        50,
		MediumConfidence:        45,
		HighConfidence:          70,
		DuplicateThreshold:      60,
		OpenStatuses:            append([]string(nil), types.DefaultOpenStatuses...),
	}
}

// namedInt is a config field checked by Validate, in declaration order
type namedInt struct {
	name  string
	value int
}

// Validate checks if the configuration has valid values.
// Fields are checked in a fixed order, so the first invalid one is reported.
func (c Config) Validate() error {
	points := []namedInt{
		{"same_domain_points", c.SameDomainPoints},
		{"same_sender_points", c.SameSenderPoints},
		{"shared_reference_points", c.SharedReferencePoints},
		{"product_points", c.ProductPoints},
		{"issue_type_points", c.IssueTypePoints},
		{"keyword_overlap_points", c.KeywordOverlapPoints},
		{"ticket_reference_points", c.TicketReferencePoints},
		{"ticket_product_points", c.TicketProductPoints},
		{"ticket_issue_type_points", c.TicketIssueTypePoints},
		{"sender_mention_points", c.SenderMentionPoints},
		{"title_overlap_points", c.TitleOverlapPoints},
	}
	for _, p := range points {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100 (got %d)", p.name, p.value)
		}
	}
	if c.KeywordOverlapThreshold < 0.0 || c.KeywordOverlapThreshold > 1.0 {
		return fmt.Errorf("keyword_overlap_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.KeywordOverlapThreshold)
	}
	if c.TimeWindowDays < 0 {
		return fmt.Errorf("time_window_days cannot be negative (got %.1f)", c.TimeWindowDays)
	}
	if c.TimeDecayPoints < 0 {
		return fmt.Errorf("time_decay_points cannot be negative (got %.1f)", c.TimeDecayPoints)
	}
	if c.TicketProductCap < 0 {
		return fmt.Errorf("ticket_product_cap cannot be negative (got %d)", c.TicketProductCap)
	}
	if c.TitleOverlapMinWords < 1 {
		return fmt.Errorf("title_overlap_min_words must be at least 1 (got %d)", c.TitleOverlapMinWords)
	}
	thresholds := []namedInt{
		{"related_threshold", c.RelatedThreshold},
		{"medium_confidence", c.MediumConfidence},
		{"high_confidence", c.HighConfidence},
		{"duplicate_threshold", c.DuplicateThreshold},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100 (got %d)", th.name, th.value)
		}
	}
	if c.MediumConfidence > c.HighConfidence {
		return fmt.Errorf("medium_confidence (%d) must be <= high_confidence (%d)",
			c.MediumConfidence, c.HighConfidence)
	}
	if len(c.OpenStatuses) == 0 {
		return fmt.Errorf("open_statuses cannot be empty")
	}
	return nil
}
