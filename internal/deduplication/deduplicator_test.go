package deduplication

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/mailtriage/internal/similarity"
	"github.com/deskops/mailtriage/internal/types"
)

var t0 = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

// mailbox returns a small batch:
//   - e1 and e2 report the same jammed label printer (order ORD-99887) and
//     match open ticket T-100
//   - e3 is a billing question that matches closed ticket T-200
//   - e4 is an unrelated feature request
func mailbox() ([]*types.RawEmail, []*types.RawTicket) {
	emails := []*types.RawEmail{
		{
			ID:         "e1",
			Subject:    "Printer jammed again - ORD-99887",
			From:       "Alice <alice@acme.com>",
			To:         []string{"support@example.test"},
			Body:       "Our label printer jammed again on order ORD-99887. Please help.",
			ReceivedAt: t0,
		},
		{
			ID:         "e2",
			Subject:    "Re: printer jam ORD-99887",
			From:       "carol@acme.com",
			Body:       "Same printer problem here with ORD-99887",
			ReceivedAt: t0.Add(time.Hour),
		},
		{
			ID:         "e3",
			Subject:    "Refund for INV-5521",
			From:       "bob@globex.test",
			Body:       "I was charged twice on invoice INV-5521, please refund the payment.",
			ReceivedAt: t0.Add(48 * time.Hour),
		},
		{
			ID:         "e4",
			Subject:    "Feature request: dark mode",
			From:       "dave@initech.test",
			Body:       "It would be nice to have a dark mode in the dashboard.",
			ReceivedAt: t0.Add(10 * 24 * time.Hour),
		},
	}
	tickets := []*types.RawTicket{
		{
			ID:          "T-100",
			Title:       "Label printer jammed on ORD-99887",
			Description: "alice@acme.com says the label printer jams every morning",
			Status:      "open",
			Priority:    "high",
			Category:    "printing",
			CreatedAt:   t0.Add(-24 * time.Hour),
		},
		{
			ID:          "T-200",
			Title:       "Payment refund for INV-5521",
			Description: "Refund request from bob@globex.test",
			Status:      "closed",
			Priority:    "medium",
			Category:    "billing",
			CreatedAt:   t0.Add(-72 * time.Hour),
		},
	}
	return emails, tickets
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return engine
}

func TestCrossAnalyze_Recommendations(t *testing.T) {
	emails, tickets := mailbox()
	result, err := newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	require.Len(t, result.GroupsWithMatches, 3)

	printer := result.GroupsWithMatches[0]
	assert.Equal(t, "e1", printer.Group.PrimaryEmail.ID)
	require.Len(t, printer.Group.RelatedEmails, 1)
	assert.Equal(t, "e2", printer.Group.RelatedEmails[0].ID)
	assert.Equal(t, RecommendSkip, printer.Recommendation)
	assert.Equal(t, "T-100", printer.TicketID)
	assert.Contains(t, printer.Reason, "T-100")
	require.NotEmpty(t, printer.Matches)
	assert.Equal(t, "T-100", printer.Matches[0].Ticket.ID)
	assert.True(t, printer.Matches[0].IsDuplicate)

	billing := result.GroupsWithMatches[1]
	assert.Equal(t, "e3", billing.Group.PrimaryEmail.ID)
	assert.Equal(t, RecommendLink, billing.Recommendation, "closed ticket cannot be a duplicate")
	assert.Equal(t, "T-200", billing.TicketID)
	require.Len(t, billing.Matches, 1)
	assert.False(t, billing.Matches[0].IsDuplicate)
	assert.Equal(t, types.ConfidenceHigh, billing.Matches[0].Confidence)
	assert.Contains(t, billing.Matches[0].Reasons, similarity.ReasonSenderMentioned)

	feature := result.GroupsWithMatches[2]
	assert.Equal(t, "e4", feature.Group.PrimaryEmail.ID)
	assert.Equal(t, RecommendCreate, feature.Recommendation)
	assert.Empty(t, feature.TicketID)
	assert.Empty(t, feature.Matches)

	assert.Equal(t, Stats{
		TotalEmails:  4,
		SkipCount:    2,
		LinkCount:    1,
		CreateCount:  1,
		TotalGroups:  3,
		TotalTickets: 2,
	}, result.Stats)
	assert.Empty(t, result.Rejected)
}

func TestCrossAnalyze_BackReferences(t *testing.T) {
	emails, tickets := mailbox()
	result, err := newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)

	want := map[string]string{"e1": "T-100", "e2": "T-100", "e3": "T-200", "e4": ""}
	for _, gm := range result.GroupsWithMatches {
		for _, m := range gm.Group.Members() {
			assert.Equal(t, want[m.ID], m.ExistingTicketID, "email %s", m.ID)
			assert.Equal(t, gm.Group.ID, m.GroupID, "email %s", m.ID)
		}
	}
}

func TestCrossAnalyze_EmptyEmails(t *testing.T) {
	_, tickets := mailbox()
	result, err := CrossAnalyzeEmailsAndTickets(context.Background(), nil, tickets)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.TotalEmails)
	assert.Equal(t, 2, result.Stats.TotalTickets)
	assert.NotNil(t, result.GroupsWithMatches)
	assert.Empty(t, result.GroupsWithMatches)
	assert.NoError(t, result.Validate())
}

func TestCrossAnalyze_Deterministic(t *testing.T) {
	engine := newTestEngine(t)

	run := func() []byte {
		emails, tickets := mailbox()
		result, err := engine.CrossAnalyze(context.Background(), emails, tickets)
		require.NoError(t, err)
		data, err := json.Marshal(result)
		require.NoError(t, err)
		return data
	}

	assert.JSONEq(t, string(run()), string(run()))
}

func TestCrossAnalyze_InputOrderDoesNotChangeGroups(t *testing.T) {
	emails, tickets := mailbox()
	reversed := make([]*types.RawEmail, len(emails))
	for i, e := range emails {
		reversed[len(emails)-1-i] = e
	}

	engine := newTestEngine(t)
	a, err := engine.CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)
	b, err := engine.CrossAnalyze(context.Background(), reversed, tickets)
	require.NoError(t, err)

	require.Len(t, b.GroupsWithMatches, len(a.GroupsWithMatches))
	for i := range a.GroupsWithMatches {
		assert.Equal(t, a.GroupsWithMatches[i].Group.ID, b.GroupsWithMatches[i].Group.ID)
		assert.Equal(t, a.GroupsWithMatches[i].Recommendation, b.GroupsWithMatches[i].Recommendation)
	}
}

func TestCrossAnalyze_RejectsMalformedRecords(t *testing.T) {
	emails, tickets := mailbox()
	emails = append(emails,
		&types.RawEmail{ID: "", Subject: "no id", ReceivedAt: t0},
		&types.RawEmail{ID: "e5", Subject: "no receive time"},
		&types.RawEmail{ID: "e1", Subject: "repeated id", ReceivedAt: t0},
		nil,
	)
	tickets = append(tickets, &types.RawTicket{Title: "missing id"}, nil)

	result, err := newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, 4, result.Stats.TotalEmails)
	assert.Equal(t, 2, result.Stats.TotalTickets)
	assert.Equal(t, 4, result.Stats.RejectedEmails)
	assert.Equal(t, 2, result.Stats.RejectedTickets)

	require.Len(t, result.Rejected, 6)
	assert.Equal(t, Rejection{Kind: KindEmail, ID: "", Index: 4, Reason: "id is required"}, result.Rejected[0])
	assert.Equal(t, Rejection{Kind: KindEmail, ID: "e5", Index: 5, Reason: "received_at is required"}, result.Rejected[1])
	assert.Equal(t, Rejection{Kind: KindEmail, ID: "e1", Index: 6, Reason: "duplicate email id"}, result.Rejected[2])
	assert.Equal(t, Rejection{Kind: KindEmail, Index: 7, Reason: "email is nil"}, result.Rejected[3])
	assert.Equal(t, Rejection{Kind: KindTicket, Index: 2, Reason: "id is required"}, result.Rejected[4])
	assert.Equal(t, Rejection{Kind: KindTicket, Index: 3, Reason: "ticket is nil"}, result.Rejected[5])

	// The repeated id does not displace the original e1
	assert.Equal(t, "Printer jammed again - ORD-99887", result.GroupsWithMatches[0].Group.PrimaryEmail.Subject)
}

func TestCrossAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emails, tickets := mailbox()
	_, err := newTestEngine(t).CrossAnalyze(ctx, emails, tickets)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrossAnalyze_DoesNotModifyInput(t *testing.T) {
	emails, tickets := mailbox()
	before, err := json.Marshal(struct {
		E []*types.RawEmail
		T []*types.RawTicket
	}{emails, tickets})
	require.NoError(t, err)

	_, err = newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)

	after, err := json.Marshal(struct {
		E []*types.RawEmail
		T []*types.RawTicket
	}{emails, tickets})
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestFindMatchingTickets(t *testing.T) {
	email := &types.AnalyzedEmail{
		RawEmail: types.RawEmail{ID: "e", Subject: "Scanner calibration failure", ReceivedAt: t0},
		Entities: types.Entities{SenderAddress: "zoe@acme.test", References: []string{"REF-123"}},
	}
	mentionOnly := &types.AnalyzedTicket{
		RawTicket: types.RawTicket{ID: "mention", Title: "Other", Description: "contact zoe@acme.test", Status: "open"},
	}
	mentionAndTitle := &types.AnalyzedTicket{
		RawTicket: types.RawTicket{ID: "title", Title: "Scanner calibration drift", Description: "zoe@acme.test reported it", Status: "open"},
	}
	reference := &types.AnalyzedTicket{
		RawTicket: types.RawTicket{ID: "ref", Title: "x", Status: "open"},
		Entities:  types.Entities{References: []string{"REF-123"}},
	}

	matches := FindMatchingTickets(email, []*types.AnalyzedTicket{mentionOnly, mentionAndTitle, nil, reference})
	require.Len(t, matches, 2)
	assert.Equal(t, "ref", matches[0].Ticket.ID)
	assert.Equal(t, 50, matches[0].SimilarityScore)
	assert.Equal(t, "title", matches[1].Ticket.ID)
	assert.Equal(t, 30, matches[1].SimilarityScore, "the minimum match score is inclusive")

	assert.Empty(t, FindMatchingTickets(email, nil))
	assert.Empty(t, FindMatchingTickets(nil, []*types.AnalyzedTicket{reference}))
}

func TestRecommend(t *testing.T) {
	ticket := func(id string) *types.AnalyzedTicket {
		return &types.AnalyzedTicket{RawTicket: types.RawTicket{ID: id}}
	}

	tests := []struct {
		name       string
		matches    []similarity.MatchResult
		want       Recommendation
		wantTicket string
	}{
		{
			name:    "no matches",
			matches: nil,
			want:    RecommendCreate,
		},
		{
			name: "best duplicate wins over higher non-duplicate",
			matches: []similarity.MatchResult{
				{Ticket: ticket("closed"), SimilarityScore: 90, Confidence: types.ConfidenceHigh},
				{Ticket: ticket("open-a"), SimilarityScore: 65, Confidence: types.ConfidenceMedium, IsDuplicate: true},
				{Ticket: ticket("open-b"), SimilarityScore: 61, Confidence: types.ConfidenceMedium, IsDuplicate: true},
			},
			want:       RecommendSkip,
			wantTicket: "open-a",
		},
		{
			name: "medium confidence links",
			matches: []similarity.MatchResult{
				{Ticket: ticket("t1"), SimilarityScore: 50, Confidence: types.ConfidenceMedium},
				{Ticket: ticket("t2"), SimilarityScore: 35, Confidence: types.ConfidenceLow},
			},
			want:       RecommendLink,
			wantTicket: "t1",
		},
		{
			name: "low confidence only creates",
			matches: []similarity.MatchResult{
				{Ticket: ticket("t1"), SimilarityScore: 40, Confidence: types.ConfidenceLow},
			},
			want: RecommendCreate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reason, ticketID := Recommend(tt.matches)
			assert.Equal(t, tt.want, rec)
			assert.Equal(t, tt.wantTicket, ticketID)
			assert.NotEmpty(t, reason)
			if tt.wantTicket != "" {
				assert.Contains(t, reason, tt.wantTicket)
			}
		})
	}
}

func TestStatsValidate(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		errorMsg string
	}{
		{
			name:  "empty",
			stats: Stats{},
		},
		{
			name:  "consistent",
			stats: Stats{TotalEmails: 5, SkipCount: 2, LinkCount: 1, CreateCount: 2, TotalGroups: 3, TotalTickets: 7},
		},
		{
			name:     "counts do not add up",
			stats:    Stats{TotalEmails: 5, SkipCount: 2, CreateCount: 2, TotalGroups: 2},
			errorMsg: "does not match total_emails",
		},
		{
			name:     "more groups than emails",
			stats:    Stats{TotalEmails: 1, CreateCount: 1, TotalGroups: 2},
			errorMsg: "cannot exceed total_emails",
		},
		{
			name:     "negative",
			stats:    Stats{TotalTickets: -1},
			errorMsg: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stats.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestGroupMatchesValidate(t *testing.T) {
	emails, tickets := mailbox()
	result, err := newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)

	gm := result.GroupsWithMatches[0]
	require.NoError(t, gm.Validate())

	gm.TicketID = ""
	assert.ErrorContains(t, gm.Validate(), "ticket_id must be set")

	gm.Recommendation = "merge"
	assert.ErrorContains(t, gm.Validate(), "invalid recommendation")
}

func TestCrossAnalyze_TicketCategoryDoesNotCountAsIssueType(t *testing.T) {
	emails := []*types.RawEmail{{
		ID:         "e1",
		Subject:    "The dashboard export is broken",
		From:       "dana@acme.test",
		ReceivedAt: t0,
	}}
	tickets := []*types.RawTicket{{
		ID:          "T-1",
		Title:       "Dashboard export",
		Description: "Dashboard export request",
		Status:      "open",
		Category:    "bug",
	}}

	result, err := newTestEngine(t).CrossAnalyze(context.Background(), emails, tickets)
	require.NoError(t, err)
	require.Len(t, result.GroupsWithMatches, 1)

	gm := result.GroupsWithMatches[0]
	assert.Equal(t, "Bug Report", gm.Group.PrimaryEmail.Entities.IssueType)
	require.Len(t, gm.Matches, 1)
	match := gm.Matches[0]
	assert.Less(t, match.SimilarityScore, 60)
	assert.False(t, match.IsDuplicate)
	for _, reason := range match.Reasons {
		assert.NotContains(t, reason, "Same issue type")
	}
	assert.Equal(t, RecommendLink, gm.Recommendation)
	assert.Equal(t, "T-1", gm.TicketID)
}

func TestStatsValidateReportsFirstNegativeCount(t *testing.T) {
	stats := Stats{TotalEmails: 1, SkipCount: -1, TotalGroups: -2, RejectedTickets: -3}
	for i := 0; i < 20; i++ {
		assert.EqualError(t, stats.Validate(), "skip_count cannot be negative (got -1)")
	}
}
