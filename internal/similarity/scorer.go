package similarity

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/deskops/mailtriage/internal/extraction"
	"github.com/deskops/mailtriage/internal/types"
)

// ReasonSenderMentioned is reported when an email's sender address appears
// in a ticket description
const ReasonSenderMentioned = "Sender mentioned in ticket"

// minTitleWordLength: subject/title words must be longer than 3 characters
const minTitleWordLength = 4

// PairScore is the similarity between two emails
type PairScore struct {
	Score           int              `json:"score"`
	Reasons         []string         `json:"reasons"`
	Confidence      types.Confidence `json:"confidence"`
	IsLikelyRelated bool             `json:"is_likely_related"`
}

// MatchResult is the similarity between an email and an existing ticket
type MatchResult struct {
	Ticket          *types.AnalyzedTicket `json:"ticket"`
	SimilarityScore int                   `json:"similarity_score"`
	Reasons         []string              `json:"reasons"`
	Confidence      types.Confidence      `json:"confidence"`
	IsDuplicate     bool                  `json:"is_duplicate"`
}

// Validate checks if the match result has valid values
func (m *MatchResult) Validate() error {
	if m.Ticket == nil {
		return fmt.Errorf("ticket is required")
	}
	if m.SimilarityScore < 0 || m.SimilarityScore > 100 {
		return fmt.Errorf("similarity_score must be between 0 and 100 (got %d)", m.SimilarityScore)
	}
	switch m.Confidence {
	case types.ConfidenceLow, types.ConfidenceMedium, types.ConfidenceHigh:
	default:
		return fmt.Errorf("invalid confidence: %q", m.Confidence)
	}
	return nil
}

// Scorer computes additive similarity scores. It is immutable after
// construction and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given configuration
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// DefaultScorer returns a scorer using DefaultConfig
func DefaultScorer() *Scorer {
	return &Scorer{cfg: DefaultConfig()}
}

// Config returns the scorer's configuration
func (s *Scorer) Config() Config {
	return s.cfg
}

// Confidence maps a score to its tier
func (s *Scorer) Confidence(score int) types.Confidence {
	switch {
	case score >= s.cfg.HighConfidence:
		return types.ConfidenceHigh
	case score >= s.cfg.MediumConfidence:
		return types.ConfidenceMedium
	}
	return types.ConfidenceLow
}

// ScoreEmailPair scores two emails with the default model
func ScoreEmailPair(a, b *types.AnalyzedEmail) PairScore {
	return DefaultScorer().ScoreEmailPair(a, b)
}

// ScoreEmailTicket scores an email against a ticket with the default model
func ScoreEmailTicket(email *types.AnalyzedEmail, ticket *types.AnalyzedTicket) MatchResult {
	return DefaultScorer().ScoreEmailTicket(email, ticket)
}

// ScoreEmailPair computes how likely two emails describe the same problem
func (s *Scorer) ScoreEmailPair(a, b *types.AnalyzedEmail) PairScore {
	var t tally
	ea, eb := a.Entities, b.Entities

	if ea.SenderDomain != "" && ea.SenderDomain == eb.SenderDomain {
		t.add(s.cfg.SameDomainPoints, fmt.Sprintf("Same sender domain (%s)", ea.SenderDomain))
	}
	if ea.SenderAddress != "" && strings.EqualFold(ea.SenderAddress, eb.SenderAddress) {
		t.add(s.cfg.SameSenderPoints, "Same sender")
	}

	if shared := intersect(ea.References, eb.References); len(shared) > 0 {
		t.add(s.cfg.SharedReferencePoints,
			fmt.Sprintf("Shared reference numbers: %s", strings.Join(shared, ", ")))
	}

	if ratio := overlapRatio(ea.Keywords, eb.Keywords); ratio > s.cfg.KeywordOverlapThreshold {
		t.add(roundPoints(ratio*float64(s.cfg.KeywordOverlapPoints)),
			fmt.Sprintf("Similar keywords (%d%% overlap)", roundPoints(ratio*100)))
	}

	if shared := intersect(ea.ProductMentions, eb.ProductMentions); len(shared) > 0 {
		t.add(s.cfg.ProductPoints*len(shared),
			fmt.Sprintf("Same products mentioned: %s", strings.Join(shared, ", ")))
	}

	if ea.IssueType != "" && ea.IssueType == eb.IssueType {
		t.add(s.cfg.IssueTypePoints, fmt.Sprintf("Same issue type: %s", ea.IssueType))
	}

	days := math.Abs(a.ReceivedAt.Sub(b.ReceivedAt).Hours()) / 24
	if days <= s.cfg.TimeWindowDays {
		t.add(roundPoints((s.cfg.TimeWindowDays-days)*s.cfg.TimeDecayPoints),
			fmt.Sprintf("Received %s apart", formatDays(days)))
	}

	score := t.total()
	return PairScore{
		Score:           score,
		Reasons:         t.reasons,
		Confidence:      s.Confidence(score),
		IsLikelyRelated: score >= s.cfg.RelatedThreshold,
	}
}

// ScoreEmailTicket computes how likely an email is about an existing ticket.
// A match is only a duplicate when the ticket is still open.
func (s *Scorer) ScoreEmailTicket(email *types.AnalyzedEmail, ticket *types.AnalyzedTicket) MatchResult {
	var t tally
	ee, te := email.Entities, ticket.Entities

	if shared := intersect(ee.References, te.References); len(shared) > 0 {
		t.add(s.cfg.TicketReferencePoints,
			fmt.Sprintf("Matching reference numbers: %s", strings.Join(shared, ", ")))
	}

	if shared := intersect(ee.ProductMentions, te.ProductMentions); len(shared) > 0 {
		t.add(s.cfg.TicketProductPoints*min(len(shared), s.cfg.TicketProductCap),
			fmt.Sprintf("Related products: %s", strings.Join(shared, ", ")))
	}

	if ratio := overlapRatio(ee.Keywords, te.Keywords); ratio > s.cfg.KeywordOverlapThreshold {
		t.add(roundPoints(ratio*float64(s.cfg.KeywordOverlapPoints)),
			fmt.Sprintf("Similar keywords (%d%% overlap)", roundPoints(ratio*100)))
	}

	if ee.IssueType != "" && ee.IssueType == te.IssueType {
		t.add(s.cfg.TicketIssueTypePoints, fmt.Sprintf("Same issue type: %s", ee.IssueType))
	}

	if ee.SenderAddress != "" &&
		strings.Contains(strings.ToLower(ticket.Description), strings.ToLower(ee.SenderAddress)) {
		t.add(s.cfg.SenderMentionPoints, ReasonSenderMentioned)
	}

	if shared := sharedTitleWords(email.Subject, ticket.Title); shared >= s.cfg.TitleOverlapMinWords {
		t.add(s.cfg.TitleOverlapPoints, "Similar subject and title")
	}

	score := t.total()
	return MatchResult{
		Ticket:          ticket,
		SimilarityScore: score,
		Reasons:         t.reasons,
		Confidence:      s.Confidence(score),
		IsDuplicate:     score >= s.cfg.DuplicateThreshold && ticket.IsOpen(s.cfg.OpenStatuses),
	}
}

// tally accumulates points and the reasons for them
type tally struct {
	score   int
	reasons []string
}

func (t *tally) add(points int, reason string) {
	if points == 0 {
		return
	}
	t.score += points
	t.reasons = append(t.reasons, reason)
}

func (t *tally) total() int {
	if t.reasons == nil {
		t.reasons = []string{}
	}
	return max(0, min(t.score, 100))
}

func roundPoints(v float64) int {
	return int(math.Round(v))
}

// overlapRatio is |shared| / max(|a|, |b|, 1)
func overlapRatio(a, b []string) float64 {
	shared := len(intersect(a, b))
	return float64(shared) / float64(max(len(a), len(b), 1))
}

// intersect returns the distinct values of a that also appear in b, in a's order
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, v := range a {
		if inB[v] && !seen[v] {
			seen[v] = true
			shared = append(shared, v)
		}
	}
	return shared
}

// sharedTitleWords counts distinct words longer than 3 characters that
// appear in both the subject and the title
func sharedTitleWords(subject, title string) int {
	inTitle := make(map[string]bool)
	for _, w := range extraction.Tokenize(title) {
		if utf8.RuneCountInString(w) >= minTitleWordLength {
			inTitle[w] = true
		}
	}
	count := 0
	seen := make(map[string]bool)
	for _, w := range extraction.Tokenize(subject) {
		if inTitle[w] && !seen[w] {
			seen[w] = true
			count++
		}
	}
	return count
}

func formatDays(days float64) string {
	if days < 1 {
		hours := roundPoints(days * 24)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	d := roundPoints(days)
	if d == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", d)
}
