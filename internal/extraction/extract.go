package extraction

import (
	"sort"
	"strings"

	"github.com/deskops/mailtriage/internal/types"
)

// DefaultMaxKeywords is the number of keywords kept per email or ticket
const DefaultMaxKeywords = 15

// ExtractKeywords returns the most frequent normalized tokens of text,
// at most DefaultMaxKeywords of them.
func ExtractKeywords(text string) []string {
	return extractKeywords(text, DefaultMaxKeywords)
}

// extractKeywords ranks tokens by descending count. Ties keep first-seen order.
func extractKeywords(text string, limit int) []string {
	tokens := Normalize(text)
	counts := make(map[string]int, len(tokens))
	var order []string
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// ExtractReferences returns the order, ticket and reference identifiers in
// text, uppercased and de-duplicated in first-seen order.
func ExtractReferences(text string) []string {
	refs := []string{}
	if text == "" {
		return refs
	}
	seen := make(map[string]bool)
	add := func(ref string) {
		ref = strings.ToUpper(strings.TrimSpace(ref))
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	for _, pattern := range referencePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			add(match)
		}
	}
	for _, match := range catchAllReference.FindAllStringSubmatch(text, -1) {
		if len(match) > 1 {
			add(match[1])
		}
	}

	return refs
}

// ExtractProductMentions returns the vocabulary terms mentioned in text,
// lowercase and in vocabulary order.
func ExtractProductMentions(text string) []string {
	products := []string{}
	if text == "" {
		return products
	}
	for _, p := range productPatterns {
		if p.pattern.MatchString(text) {
			products = append(products, p.label)
		}
	}
	return products
}

// DetectIssueType returns the label of the first issue pattern matching
// subject+body, or "" when none does.
func DetectIssueType(body, subject string) string {
	text := joinText(subject, body)
	if text == "" {
		return ""
	}
	for _, p := range issueTypePatterns {
		if p.pattern.MatchString(text) {
			return p.label
		}
	}
	return ""
}

// DetectUrgency returns the highest urgency tier whose pattern matches,
// defaulting to low.
func DetectUrgency(body, subject string) types.Urgency {
	text := joinText(subject, body)
	for _, p := range urgencyPatterns {
		if p.pattern.MatchString(text) {
			return p.level
		}
	}
	return types.UrgencyLow
}

// DetectSentiment classifies the tone of text.
//
// Frustration overrides everything. Negative markers only win when no
// positive marker is present, so "thanks, but there was an issue" reads as
// positive rather than negative.
func DetectSentiment(text string) types.Sentiment {
	if text == "" {
		return types.SentimentNeutral
	}
	if frustratedPattern.MatchString(text) {
		return types.SentimentFrustrated
	}
	positive := positivePattern.MatchString(text)
	if negativePattern.MatchString(text) && !positive {
		return types.SentimentNegative
	}
	if positive {
		return types.SentimentPositive
	}
	return types.SentimentNeutral
}

// SenderDomain returns the part of address after the last "@", lowercased
func SenderDomain(address string) string {
	idx := strings.LastIndex(address, "@")
	if idx < 0 || idx == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[idx+1:])
}

func joinText(subject, body string) string {
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	}
	return subject + " " + body
}
