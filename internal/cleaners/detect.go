package cleaners

import "regexp"

// Text type identifiers used by cleaners and the registry.
const (
	TypePlain    = "plain"
	TypeMarkdown = "markdown"
	TypeHTML     = "html"
)

var (
	// Common HTML tags. Matching any of them classifies the payload
	// as HTML before markdown patterns are consulted, since markdown
	// frequently embeds literal asterisks and brackets.
	htmlTagRe = regexp.MustCompile(`(?i)</?(html|head|body|div|span|p|h[1-6]|a|img|ul|ol|li|table|tr|td|th|strong|em|br|hr|script|style|meta|link)[^>]*>`)

	markdownRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#{1,6}\s`),         // headings
		regexp.MustCompile(`\*\*.+?\*\*`),           // bold
		regexp.MustCompile(`__.+?__`),               // bold
		regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`),  // images
		regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`),   // links
		regexp.MustCompile(`(?m)^>\s`),              // blockquotes
		regexp.MustCompile(`(?m)^\d+\.\s`),          // ordered lists
		regexp.MustCompile("(?s)```.*```"),          // fenced code
		regexp.MustCompile(`(?m)^-{3,}\s*$`),        // horizontal rule
	}
)

// DetectType classifies a payload as html, markdown or plain text.
func DetectType(payload string) string {
	if htmlTagRe.MatchString(payload) {
		return TypeHTML
	}
	for _, re := range markdownRes {
		if re.MatchString(payload) {
			return TypeMarkdown
		}
	}
	return TypePlain
}
