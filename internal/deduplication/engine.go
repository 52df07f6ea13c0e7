package deduplication

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deskops/mailtriage/internal/extraction"
	"github.com/deskops/mailtriage/internal/grouping"
	"github.com/deskops/mailtriage/internal/similarity"
	"github.com/deskops/mailtriage/internal/types"
)

// Engine implements the Deduplicator interface with the heuristic scoring model
type Engine struct {
	config    Config
	extractor *extraction.Extractor
	scorer    *similarity.Scorer
	grouper   *grouping.Grouper
}

// Compile-time check that Engine implements Deduplicator
var _ Deduplicator = (*Engine)(nil)

// NewEngine creates an engine. Returns an error if config validation fails.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	scorer, err := similarity.NewScorer(config.Scoring)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		extractor: extraction.NewExtractor(extraction.Options{
			MaxKeywords: config.MaxKeywords,
			StripHTML:   config.StripHTML,
		}),
		scorer:  scorer,
		grouper: grouping.NewGrouper(scorer, config.CommonKeywordLimit),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// FindMatchingTickets returns the tickets scoring at least MinMatchScore
// against email, highest score first
func (e *Engine) FindMatchingTickets(email *types.AnalyzedEmail, tickets []*types.AnalyzedTicket) []similarity.MatchResult {
	return findMatchingTickets(e.scorer, e.config.MinMatchScore, email, tickets)
}

// CrossAnalyzeEmailsAndTickets runs a cross analysis with the default configuration
func CrossAnalyzeEmailsAndTickets(ctx context.Context, emails []*types.RawEmail, tickets []*types.RawTicket) (*Result, error) {
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return engine.CrossAnalyze(ctx, emails, tickets)
}

// CrossAnalyze groups the emails, matches each group against the tickets,
// and recommends an action per group
func (e *Engine) CrossAnalyze(ctx context.Context, emails []*types.RawEmail, tickets []*types.RawTicket) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cross analysis cancelled: %w", err)
	}
	start := time.Now()

	var rejected []Rejection
	acceptedEmails, rejectedEmails := e.acceptEmails(emails)
	rejected = append(rejected, rejectedEmails...)
	acceptedTickets, rejectedTickets := e.acceptTickets(tickets)
	rejected = append(rejected, rejectedTickets...)
	if rejected == nil {
		rejected = []Rejection{}
	}

	analyzedEmails := make([]*types.AnalyzedEmail, 0, len(acceptedEmails))
	for _, raw := range acceptedEmails {
		analyzedEmails = append(analyzedEmails, e.extractor.AnalyzeEmail(raw))
	}
	analyzedTickets := make([]*types.AnalyzedTicket, 0, len(acceptedTickets))
	for _, raw := range acceptedTickets {
		analyzedTickets = append(analyzedTickets, e.extractor.AnalyzeTicket(raw))
	}

	groups := e.grouper.Group(analyzedEmails)

	result := &Result{
		GroupsWithMatches: make([]GroupMatches, 0, len(groups)),
		Rejected:          rejected,
		Stats: Stats{
			TotalEmails:     len(analyzedEmails),
			TotalGroups:     len(groups),
			TotalTickets:    len(analyzedTickets),
			RejectedEmails:  len(rejectedEmails),
			RejectedTickets: len(rejectedTickets),
		},
	}

	for _, group := range groups {
		matches := e.FindMatchingTickets(group.PrimaryEmail, analyzedTickets)
		rec, reason, ticketID := Recommend(matches)

		for _, m := range group.Members() {
			m.ExistingTicketID = ticketID
		}
		switch rec {
		case RecommendSkip:
			result.Stats.SkipCount += group.Size()
		case RecommendLink:
			result.Stats.LinkCount += group.Size()
		default:
			result.Stats.CreateCount += group.Size()
		}

		result.GroupsWithMatches = append(result.GroupsWithMatches, GroupMatches{
			Group:          group,
			Matches:        matches,
			Recommendation: rec,
			Reason:         reason,
			TicketID:       ticketID,
		})
	}

	log.Printf("[TRIAGE] Cross analysis: %d emails, %d tickets, %d groups (skip=%d link=%d create=%d, rejected=%d) in %v",
		result.Stats.TotalEmails, result.Stats.TotalTickets, result.Stats.TotalGroups,
		result.Stats.SkipCount, result.Stats.LinkCount, result.Stats.CreateCount,
		len(result.Rejected), time.Since(start).Round(time.Microsecond))

	return result, nil
}

// acceptEmails splits emails into valid records and rejections. An id that
// was already accepted is rejected so an email cannot land in two groups.
func (e *Engine) acceptEmails(emails []*types.RawEmail) ([]*types.RawEmail, []Rejection) {
	var accepted []*types.RawEmail
	var rejected []Rejection
	seen := make(map[string]bool, len(emails))

	for i, raw := range emails {
		reason := ""
		if raw == nil {
			reason = "email is nil"
		} else if err := raw.Validate(); err != nil {
			reason = err.Error()
		} else if seen[raw.ID] {
			reason = "duplicate email id"
		}
		if reason != "" {
			r := Rejection{Kind: KindEmail, Index: i, Reason: reason}
			if raw != nil {
				r.ID = raw.ID
			}
			log.Printf("[TRIAGE] Rejecting email at index %d (id=%q): %s", i, r.ID, reason)
			rejected = append(rejected, r)
			continue
		}
		seen[raw.ID] = true
		accepted = append(accepted, raw)
	}
	return accepted, rejected
}

func (e *Engine) acceptTickets(tickets []*types.RawTicket) ([]*types.RawTicket, []Rejection) {
	var accepted []*types.RawTicket
	var rejected []Rejection
	seen := make(map[string]bool, len(tickets))

	for i, raw := range tickets {
		reason := ""
		if raw == nil {
			reason = "ticket is nil"
		} else if err := raw.Validate(); err != nil {
			reason = err.Error()
		} else if seen[raw.ID] {
			reason = "duplicate ticket id"
		}
		if reason != "" {
			r := Rejection{Kind: KindTicket, Index: i, Reason: reason}
			if raw != nil {
				r.ID = raw.ID
			}
			log.Printf("[TRIAGE] Rejecting ticket at index %d (id=%q): %s", i, r.ID, reason)
			rejected = append(rejected, r)
			continue
		}
		seen[raw.ID] = true
		accepted = append(accepted, raw)
	}
	return accepted, rejected
}
