package cleaners

import (
	"context"
	"fmt"
	"regexp"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure HTML implements the interface.
var _ driven.Cleaner = (*HTML)(nil)

// Script and style bodies never carry document text; drop them before
// conversion so their contents cannot leak into the cleaned output.
var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
)

// HTML strips HTML markup by converting to markdown first and then
// delegating to the markdown cleaner. Two passes keep each cleaner
// small and give HTML pages the same list/link handling as native
// markdown payloads.
type HTML struct {
	converter *md.Converter
	markdown  *Markdown
}

// NewHTML creates a new HTML cleaner.
func NewHTML() *HTML {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTML{
		converter: converter,
		markdown:  NewMarkdown(),
	}
}

// Type returns the text type identifier this cleaner handles.
func (c *HTML) Type() string {
	return TypeHTML
}

// Clean converts HTML to plain text.
func (c *HTML) Clean(ctx context.Context, payload string) (string, error) {
	stripped := scriptRe.ReplaceAllString(payload, "")
	stripped = styleRe.ReplaceAllString(stripped, "")

	markdown, err := c.converter.ConvertString(stripped)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	return c.markdown.Clean(ctx, markdown)
}
