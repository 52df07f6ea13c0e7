package deduplication

import (
	"context"
	"fmt"

	"github.com/deskops/mailtriage/internal/grouping"
	"github.com/deskops/mailtriage/internal/similarity"
	"github.com/deskops/mailtriage/internal/types"
)

// Deduplicator decides, for a batch of incoming emails, which ones are already
// covered by existing tickets.
//
// Example usage:
//
//	engine, _ := NewEngine(DefaultConfig())
//
//	// Match one email
//	matches := engine.FindMatchingTickets(email, tickets)
//	if len(matches) > 0 {
//	    log.Printf("Best match %s (score %d)", matches[0].Ticket.ID, matches[0].SimilarityScore)
//	}
//
//	// Whole batch
//	result, err := engine.CrossAnalyze(ctx, rawEmails, rawTickets)
//	if err != nil {
//	    log.Printf("Cross analysis failed: %v", err)
//	}
//	log.Printf("Skip: %d, Link: %d, Create: %d",
//	    result.Stats.SkipCount, result.Stats.LinkCount, result.Stats.CreateCount)
type Deduplicator interface {
	// FindMatchingTickets scores an analyzed email against every ticket and
	// returns the matches at or above MinMatchScore, highest score first.
	FindMatchingTickets(email *types.AnalyzedEmail, tickets []*types.AnalyzedTicket) []similarity.MatchResult

	// CrossAnalyze runs the whole pipeline over raw snapshots. Malformed
	// records are reported in Result.Rejected, not returned as errors.
	//
	// Returns:
	// - Result with one entry per email group and batch statistics
	// - Error only for a cancelled context
	CrossAnalyze(ctx context.Context, emails []*types.RawEmail, tickets []*types.RawTicket) (*Result, error)
}

// Recommendation is the action suggested for an email group
type Recommendation string

const (
	// RecommendSkip means an open ticket already covers the group
	RecommendSkip Recommendation = "skip"
	// RecommendLink means the group should be attached to an existing ticket
	RecommendLink Recommendation = "link"
	// RecommendCreate means no existing ticket fits
	RecommendCreate Recommendation = "create"
)

// IsValid checks if the recommendation is one of the known actions
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendSkip, RecommendLink, RecommendCreate:
		return true
	}
	return false
}

// GroupMatches is one email group with its ticket matches and recommendation
type GroupMatches struct {
	Group          *grouping.EmailGroup     `json:"group"`
	Matches        []similarity.MatchResult `json:"matches"`
	Recommendation Recommendation           `json:"recommendation"`
	Reason         string                   `json:"reason"`

	// TicketID is the ticket the recommendation refers to
	// Only set for skip and link
	TicketID string `json:"ticket_id,omitempty"`
}

// Validate checks if the group result is internally consistent
func (g *GroupMatches) Validate() error {
	if g.Group == nil || g.Group.PrimaryEmail == nil {
		return fmt.Errorf("group with a primary email is required")
	}
	if !g.Recommendation.IsValid() {
		return fmt.Errorf("invalid recommendation: %q", g.Recommendation)
	}
	if g.Recommendation == RecommendCreate && g.TicketID != "" {
		return fmt.Errorf("ticket_id should not be set for create")
	}
	if g.Recommendation != RecommendCreate && g.TicketID == "" {
		return fmt.Errorf("ticket_id must be set for %s", g.Recommendation)
	}
	for i := range g.Matches {
		if err := g.Matches[i].Validate(); err != nil {
			return fmt.Errorf("match %d: %w", i, err)
		}
		if i > 0 && g.Matches[i].SimilarityScore > g.Matches[i-1].SimilarityScore {
			return fmt.Errorf("matches not sorted by score at index %d", i)
		}
	}
	return nil
}

// RecordKind identifies the kind of a rejected record
type RecordKind string

const (
	KindEmail  RecordKind = "email"
	KindTicket RecordKind = "ticket"
)

// Rejection describes a malformed record left out of the analysis
type Rejection struct {
	Kind   RecordKind `json:"kind"`
	ID     string     `json:"id,omitempty"`
	Index  int        `json:"index"` // position in the input slice
	Reason string     `json:"reason"`
}

// Result is the output of one cross-analysis run
type Result struct {
	GroupsWithMatches []GroupMatches `json:"groups_with_matches"`
	Rejected          []Rejection    `json:"rejected"`
	Stats             Stats          `json:"stats"`
}

// Stats aggregates one run. Email counts cover accepted emails only.
type Stats struct {
	// TotalEmails is the number of emails analyzed
	TotalEmails int `json:"total_emails"`

	// SkipCount, LinkCount and CreateCount count emails (not groups) by the
	// recommendation of the group they belong to
	SkipCount   int `json:"skip_count"`
	LinkCount   int `json:"link_count"`
	CreateCount int `json:"create_count"`

	// TotalGroups is the number of email groups formed
	TotalGroups int `json:"total_groups"`

	// TotalTickets is the number of tickets considered
	TotalTickets int `json:"total_tickets"`

	RejectedEmails  int `json:"rejected_emails"`
	RejectedTickets int `json:"rejected_tickets"`
}

// Validate checks if the stats add up
func (s *Stats) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"total_emails", s.TotalEmails},
		{"skip_count", s.SkipCount},
		{"link_count", s.LinkCount},
		{"create_count", s.CreateCount},
		{"total_groups", s.TotalGroups},
		{"total_tickets", s.TotalTickets},
		{"rejected_emails", s.RejectedEmails},
		{"rejected_tickets", s.RejectedTickets},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%s cannot be negative (got %d)", c.name, c.value)
		}
	}
	if sum := s.SkipCount + s.LinkCount + s.CreateCount; sum != s.TotalEmails {
		return fmt.Errorf("skip + link + create (%d) does not match total_emails (%d)", sum, s.TotalEmails)
	}
	if s.TotalGroups > s.TotalEmails {
		return fmt.Errorf("total_groups (%d) cannot exceed total_emails (%d)", s.TotalGroups, s.TotalEmails)
	}
	if s.TotalEmails > 0 && s.TotalGroups == 0 {
		return fmt.Errorf("total_groups must be positive when there are emails")
	}
	return nil
}

// Validate checks if the result has valid values
func (r *Result) Validate() error {
	if err := r.Stats.Validate(); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if r.Stats.TotalGroups != len(r.GroupsWithMatches) {
		return fmt.Errorf("stats.total_groups (%d) does not match groups_with_matches length (%d)",
			r.Stats.TotalGroups, len(r.GroupsWithMatches))
	}
	if rejected := r.Stats.RejectedEmails + r.Stats.RejectedTickets; rejected != len(r.Rejected) {
		return fmt.Errorf("stats rejected counts (%d) do not match rejected length (%d)",
			rejected, len(r.Rejected))
	}

	seen := make(map[string]bool)
	members := 0
	for i := range r.GroupsWithMatches {
		gm := &r.GroupsWithMatches[i]
		if err := gm.Validate(); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		for _, m := range gm.Group.Members() {
			if seen[m.ID] {
				return fmt.Errorf("email %s appears in more than one group", m.ID)
			}
			seen[m.ID] = true
			members++
		}
	}
	if members != r.Stats.TotalEmails {
		return fmt.Errorf("group members (%d) do not match stats.total_emails (%d)",
			members, r.Stats.TotalEmails)
	}
	return nil
}
