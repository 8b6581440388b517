// Package static provides a table-driven translator for tests and
// offline deployments. It is deterministic: unknown phrases pass
// through unchanged with a locale marker so assertions can tell
// translated from untranslated text.
package static

import (
	"context"
	"strings"
	"sync"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Translator implements the interface.
var _ driven.Translator = (*Translator)(nil)

// Translator translates via an in-memory phrase table.
type Translator struct {
	mu      sync.RWMutex
	phrases map[string]string // "src|dst|text" -> translation
	locales map[string]string // lowercased text -> locale
}

// New creates an empty static translator.
func New() *Translator {
	return &Translator{
		phrases: make(map[string]string),
		locales: make(map[string]string),
	}
}

// AddPhrase registers a translation for text from src to dst.
func (t *Translator) AddPhrase(src, dst, text, translation string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phrases[key(src, dst, text)] = translation
	t.locales[strings.ToLower(text)] = src
}

// Translate returns the registered translation, or the input tagged
// with the target locale when no phrase matches.
func (t *Translator) Translate(_ context.Context, text, sourceLocale, targetLocale string) (string, error) {
	if sourceLocale == targetLocale {
		return text, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if translation, ok := t.phrases[key(sourceLocale, targetLocale, text)]; ok {
		return translation, nil
	}
	return text + " [" + targetLocale + "]", nil
}

// DetectLocale returns the locale registered for the text, if any.
func (t *Translator) DetectLocale(_ context.Context, text string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locales[strings.ToLower(strings.TrimSpace(text))], nil
}

func key(src, dst, text string) string {
	return src + "|" + dst + "|" + strings.ToLower(strings.TrimSpace(text))
}
