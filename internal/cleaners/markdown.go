package cleaners

import (
	"context"
	"regexp"
	"strings"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Markdown implements the interface.
var _ driven.Cleaner = (*Markdown)(nil)

var (
	codeBlockRe    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCodeRe   = regexp.MustCompile("`[^`]+`")
	imageRe        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRe      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe   = regexp.MustCompile(`(?m)^>\s*`)
	hrRe           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkerRe   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedListRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Markdown strips markdown formatting down to plain text.
type Markdown struct{}

// NewMarkdown creates a new markdown cleaner.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Type returns the text type identifier this cleaner handles.
func (c *Markdown) Type() string {
	return TypeMarkdown
}

// Clean removes common markdown formatting.
// This is a simplified implementation that handles common cases.
func (c *Markdown) Clean(_ context.Context, payload string) (string, error) {
	content := codeBlockRe.ReplaceAllString(payload, "")
	content = inlineCodeRe.ReplaceAllString(content, "")
	content = imageRe.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	content = linkRe.ReplaceAllString(content, "$1")

	content = headingRe.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquoteRe.ReplaceAllString(content, "")
	content = hrRe.ReplaceAllString(content, "")
	content = listMarkerRe.ReplaceAllString(content, "")
	content = numberedListRe.ReplaceAllString(content, "")
	content = multiNewlineRe.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content), nil
}
