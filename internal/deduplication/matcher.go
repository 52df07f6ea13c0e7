package deduplication

import (
	"fmt"
	"sort"

	"github.com/deskops/mailtriage/internal/similarity"
	"github.com/deskops/mailtriage/internal/types"
)

// FindMatchingTickets matches an email against tickets with the default configuration
func FindMatchingTickets(email *types.AnalyzedEmail, tickets []*types.AnalyzedTicket) []similarity.MatchResult {
	return findMatchingTickets(similarity.DefaultScorer(), DefaultConfig().MinMatchScore, email, tickets)
}

func findMatchingTickets(scorer *similarity.Scorer, minScore int, email *types.AnalyzedEmail, tickets []*types.AnalyzedTicket) []similarity.MatchResult {
	matches := []similarity.MatchResult{}
	if email == nil {
		return matches
	}
	for _, ticket := range tickets {
		if ticket == nil {
			continue
		}
		if m := scorer.ScoreEmailTicket(email, ticket); m.SimilarityScore >= minScore {
			matches = append(matches, m)
		}
	}
	// Stable so equal scores keep ticket input order
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	return matches
}

// Recommend picks the action for a group from its matches, which must be
// sorted highest score first. It returns the action, a reason, and the id of
// the ticket the action refers to (empty for create).
func Recommend(matches []similarity.MatchResult) (Recommendation, string, string) {
	for _, m := range matches {
		if m.IsDuplicate {
			return RecommendSkip,
				fmt.Sprintf("Duplicate of ticket %s (score %d, %s confidence)",
					m.Ticket.ID, m.SimilarityScore, m.Confidence),
				m.Ticket.ID
		}
	}
	for _, m := range matches {
		if m.Confidence != types.ConfidenceLow {
			return RecommendLink,
				fmt.Sprintf("Related to ticket %s (score %d, %s confidence)",
					m.Ticket.ID, m.SimilarityScore, m.Confidence),
				m.Ticket.ID
		}
	}
	if len(matches) > 0 {
		return RecommendCreate,
			fmt.Sprintf("No confident ticket match (best: %s, score %d)",
				matches[0].Ticket.ID, matches[0].SimilarityScore),
			""
	}
	return RecommendCreate, "No matching tickets found", ""
}
