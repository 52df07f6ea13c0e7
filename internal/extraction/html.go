package extraction

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var markupPattern = regexp.MustCompile(`(?i)</?(html|head|body|div|p|br|span|table|tr|td|ul|ol|li|a|b|i|strong|em|font|h[1-6])\b[^<>]*>`)

// htmlPolicy strips every tag. Script and style contents are dropped by
// bluemonday; tag boundaries become spaces so words do not run together.
var htmlPolicy = newHTMLPolicy()

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// LooksLikeHTML reports whether text contains common HTML markup
func LooksLikeHTML(text string) bool {
	return markupPattern.MatchString(text)
}

// PlainText converts an HTML email body to whitespace-normalized text.
// Bodies without markup are returned unchanged.
func PlainText(body string) string {
	if !LooksLikeHTML(body) {
		return body
	}
	text := html.UnescapeString(htmlPolicy.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}
