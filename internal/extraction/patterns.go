package extraction

import (
	"regexp"

	"github.com/deskops/mailtriage/internal/types"
)

// labeledPattern pairs a regex with the label reported when it matches.
// Lists of labeledPattern are evaluated in order and the first match wins,
// so the order of every list below is a precedence ranking.
type labeledPattern struct {
	pattern *regexp.Regexp
	label   string
}

// referencePatterns capture order, ticket and case identifiers.
// The generic digit patterns are last so the prefixed forms are reported first.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:ORD|ORDER)\s?[-#]?\s?\d{3,}\b`),
	regexp.MustCompile(`(?i)\b(?:TKT|TICKET)\s?[-#]?\s?\d{3,}\b`),
	regexp.MustCompile(`(?i)\b(?:REF|INV|CASE)\s?[-#]?\s?\d{3,}\b`),
	regexp.MustCompile(`(?i)\b[A-Z]{2,4}-\d{3,}\b`),
	regexp.MustCompile(`\b\d{6,10}\b`),
}

// catchAllReference picks up "#12345" style numbers; the digits are reported
var catchAllReference = regexp.MustCompile(`#(\d{4,})\b`)

// productVocabulary is the fixed list of product and operational terms.
// Matches are reported in this order.
var productVocabulary = []string{
	"printer", "scanner", "invoice", "billing", "payment", "refund",
	"subscription", "shipping", "delivery", "tracking", "label", "order",
	"inventory", "login", "password", "account", "dashboard", "report",
	"export", "import", "integration", "api", "database", "server",
	"website", "app", "mobile", "email", "checkout", "error",
}

var productPatterns = buildProductPatterns(productVocabulary)

func buildProductPatterns(terms []string) []labeledPattern {
	patterns := make([]labeledPattern, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, labeledPattern{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `s?\b`),
			label:   term,
		})
	}
	return patterns
}

// issueTypePatterns: outages outrank everything, specific areas outrank
// generic errors, and questions come last.
var issueTypePatterns = []labeledPattern{
	{regexp.MustCompile(`(?i)\b(outage|down|not working|offline|unavailable|crash(?:ed|es|ing)?|stopped working)\b`), "System Outage"},
	{regexp.MustCompile(`(?i)\b(login|log in|logging in|sign in|signin|password|locked out|authentication|2fa)\b`), "Login Issue"},
	{regexp.MustCompile(`(?i)\b(invoices?|invoiced|billing|billed|charged?|refund(?:ed|s)?|payments?)\b`), "Billing Issue"},
	{regexp.MustCompile(`(?i)\b(shipping|shipment|shipped|deliver(?:y|ed)|tracking)\b`), "Shipping Issue"},
	{regexp.MustCompile(`(?i)\bprint(?:er|ers|ing|ed|s)?\b`), "Printing Issue"},
	{regexp.MustCompile(`(?i)\b(slow|performance|timeouts?|timed out|lag(?:gy|ging)?|loading forever)\b`), "Performance Issue"},
	{regexp.MustCompile(`(?i)\b(errors?|bugs?|exceptions?|failed|failure|fails|broken)\b`), "Bug Report"},
	{regexp.MustCompile(`(?i)\b(feature request|would be nice|could you add|please add|enhancement|suggestion)\b`), "Feature Request"},
	{regexp.MustCompile(`(?i)\b(how do i|how can i|how to|question|wondering)\b`), "Question"},
}

type urgencyPattern struct {
	pattern *regexp.Regexp
	level   types.Urgency
}

// urgencyPatterns are checked critical first; no match means low
var urgencyPatterns = []urgencyPattern{
	{regexp.MustCompile(`(?i)\b(urgent(?:ly)?|asap|emergency|critical|immediately|production down|outage)\b`), types.UrgencyCritical},
	{regexp.MustCompile(`(?i)\b(important|high priority|as soon as possible|blocking|blocker|cannot work|can't work|deadline)\b`), types.UrgencyHigh},
	{regexp.MustCompile(`(?i)\b(when you can|at your convenience|this week|follow(?:ing)? up|reminder)\b`), types.UrgencyMedium},
}

var (
	frustratedPattern = regexp.MustCompile(`(?i)\b(frustrat\w*|unacceptable|ridiculous|fed up|third time|still not|again and again|disappointed|angry)\b`)
	negativePattern   = regexp.MustCompile(`(?i)\b(problems?|issues?|bad|poor|wrong|unhappy|broken|terrible|fail\w*)\b`)
	positivePattern   = regexp.MustCompile(`(?i)\b(thank\w*|great|appreciate\w*|excellent|awesome|happy|love|perfect)\b`)
)
