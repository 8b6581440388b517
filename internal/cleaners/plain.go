package cleaners

import (
	"context"
	"strings"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Plain implements the interface.
var _ driven.Cleaner = (*Plain)(nil)

// Plain is the fallback cleaner for unmarked text.
type Plain struct{}

// NewPlain creates a new plain-text cleaner.
func NewPlain() *Plain {
	return &Plain{}
}

// Type returns the text type identifier this cleaner handles.
func (c *Plain) Type() string {
	return TypePlain
}

// Clean trims surrounding whitespace and normalizes line endings.
func (c *Plain) Clean(_ context.Context, payload string) (string, error) {
	content := strings.ReplaceAll(payload, "\r\n", "\n")
	return strings.TrimSpace(content), nil
}
