package cleaner

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner sanitizes vacancy description HTML using Bluemonday
type Cleaner struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewCleaner creates a cleaner whose Clean keeps basic formatting and whose
// CleanToText strips all markup
func NewCleaner() *Cleaner {
	policy := bluemonday.NewPolicy()

	// Allow basic text formatting
	policy.AllowElements("p", "br", "div", "span")
	policy.AllowElements("strong", "b", "em", "i", "u")
	policy.AllowElements("ul", "ol", "li")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	// Allow links but strip javascript:
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(true)
	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")

	return &Cleaner{policy: policy, strict: bluemonday.StrictPolicy()}
}

// Clean sanitizes HTML content while keeping basic formatting
func (c *Cleaner) Clean(raw string) string {
	return strings.TrimSpace(c.policy.Sanitize(raw))
}

// CleanToText removes all HTML and returns plain text
func (c *Cleaner) CleanToText(raw string) string {
	text := c.strict.Sanitize(raw)
	text = html.UnescapeString(text)

	// Clean up whitespace
	text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	text = strings.TrimSpace(text)

	return text
}
