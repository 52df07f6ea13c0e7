package types

import (
	"fmt"
	"strings"
	"time"
)

// RawEmail is an incoming support email as supplied by the email source.
// It is an immutable snapshot; the analysis pipeline never modifies it.
type RawEmail struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validate checks the fields a record needs before it can join a batch.
// Only structural problems are errors; empty text is fine.
func (e *RawEmail) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if e.ReceivedAt.IsZero() {
		return fmt.Errorf("received_at is required")
	}
	return nil
}

// RawTicket is an existing ticket as supplied by the ticket source.
type RawTicket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the fields a ticket needs before it can be matched against.
func (t *RawTicket) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// Urgency is the detected urgency tier of an email
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// IsValid checks if the urgency value is valid
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Sentiment is the detected tone of an email
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// IsValid checks if the sentiment value is valid
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentFrustrated:
		return true
	}
	return false
}

// Confidence is the tier a similarity score falls into
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// DefaultOpenStatuses are the ticket statuses treated as still actionable.
var DefaultOpenStatuses = []string{"open", "in-progress", "pending", "new"}

// IsOpenStatus reports whether status is in the open-like set, ignoring case.
func IsOpenStatus(status string, openStatuses []string) bool {
	status = strings.TrimSpace(status)
	for _, s := range openStatuses {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}

// Entities is the structured signal extracted from one email or ticket.
// Urgency and Sentiment are only populated for emails; Category only for tickets.
type Entities struct {
	SenderAddress   string    `json:"sender_address,omitempty"`
	SenderDomain    string    `json:"sender_domain,omitempty"`
	Recipients      []string  `json:"recipients,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	Keywords        []string  `json:"keywords"`
	ProductMentions []string  `json:"product_mentions"`
	References      []string  `json:"references"`
	IssueType       string    `json:"issue_type,omitempty"`
	Urgency         Urgency   `json:"urgency,omitempty"`
	Sentiment       Sentiment `json:"sentiment,omitempty"`
	Category        string    `json:"category,omitempty"`
}

// AnalyzedEmail is a RawEmail plus its extracted entities.
// ExistingTicketID and GroupID are back-references filled in by later stages.
type AnalyzedEmail struct {
	RawEmail
	Entities         Entities `json:"entities"`
	ExistingTicketID string   `json:"existing_ticket_id,omitempty"`
	GroupID          string   `json:"group_id,omitempty"`
}

// AnalyzedTicket is a RawTicket plus its extracted entities
type AnalyzedTicket struct {
	RawTicket
	Entities Entities `json:"entities"`
}

// IsOpen reports whether the ticket status is in the given open-like set
func (t *AnalyzedTicket) IsOpen(openStatuses []string) bool {
	return IsOpenStatus(t.Status, openStatuses)
}
