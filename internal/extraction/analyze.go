package extraction

import (
	"net/mail"
	"slices"
	"strings"

	"github.com/deskops/mailtriage/internal/types"
)

// Options controls entity extraction
type Options struct {
	// MaxKeywords caps the keyword list (default 15)
	MaxKeywords int

	// StripHTML converts HTML email bodies to text before extraction
	StripHTML bool
}

// DefaultOptions returns the default extraction options
func DefaultOptions() Options {
	return Options{
		MaxKeywords: DefaultMaxKeywords,
		StripHTML:   true,
	}
}

// Extractor turns raw emails and tickets into analyzed records.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	opts Options
}

// NewExtractor creates an Extractor. A non-positive MaxKeywords falls back to
// DefaultMaxKeywords.
func NewExtractor(opts Options) *Extractor {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = DefaultMaxKeywords
	}
	return &Extractor{opts: opts}
}

var defaultExtractor = NewExtractor(DefaultOptions())

// AnalyzeEmail extracts entities from raw using the default options
func AnalyzeEmail(raw *types.RawEmail) *types.AnalyzedEmail {
	return defaultExtractor.AnalyzeEmail(raw)
}

// AnalyzeTicket extracts entities from raw using the default options
func AnalyzeTicket(raw *types.RawTicket) *types.AnalyzedTicket {
	return defaultExtractor.AnalyzeTicket(raw)
}

// AnalyzeEmail extracts entities from one email. The raw record is copied,
// never modified. A nil email is treated as an empty one.
func (x *Extractor) AnalyzeEmail(raw *types.RawEmail) *types.AnalyzedEmail {
	var email types.RawEmail
	if raw != nil {
		email = *raw
		email.To = slices.Clone(raw.To)
	}

	body := email.Body
	if x.opts.StripHTML {
		body = PlainText(body)
	}
	text := joinText(email.Subject, body)
	sender := senderAddress(email.From)

	recipients := make([]string, 0, len(email.To))
	for _, r := range email.To {
		if addr := senderAddress(r); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	return &types.AnalyzedEmail{
		RawEmail: email,
		Entities: types.Entities{
			SenderAddress:   sender,
			SenderDomain:    SenderDomain(sender),
			Recipients:      recipients,
			Subject:         email.Subject,
			Keywords:        extractKeywords(text, x.opts.MaxKeywords),
			ProductMentions: ExtractProductMentions(text),
			References:      ExtractReferences(text),
			IssueType:       DetectIssueType(body, email.Subject),
			Urgency:         DetectUrgency(body, email.Subject),
			Sentiment:       DetectSentiment(text),
		},
	}
}

// AnalyzeTicket extracts entities from one ticket. Tickets carry their own
// priority and status, so urgency and sentiment are not detected.
func (x *Extractor) AnalyzeTicket(raw *types.RawTicket) *types.AnalyzedTicket {
	var ticket types.RawTicket
	if raw != nil {
		ticket = *raw
	}

	text := joinText(ticket.Title, ticket.Description)
	return &types.AnalyzedTicket{
		RawTicket: ticket,
		Entities: types.Entities{
			Subject:         ticket.Title,
			Keywords:        extractKeywords(text, x.opts.MaxKeywords),
			ProductMentions: ExtractProductMentions(text),
			References:      ExtractReferences(text),
			IssueType:       DetectIssueType(ticket.Description, ticket.Title),
			Category:        ticket.Category,
		},
	}
}

// senderAddress accepts both "jane@example.com" and "Jane <jane@example.com>"
func senderAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(from)
}
