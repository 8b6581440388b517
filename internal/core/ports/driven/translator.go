package driven

import "context"

// Translator is the external translation gateway. The mesh never
// implements translation itself; adapters wrap a real service and
// tests substitute a table-driven stub.
type Translator interface {
	// Translate converts text from sourceLocale to targetLocale.
	// Failures wrap domain.ErrTranslation. Passing equal locales is
	// allowed and returns the text unchanged.
	Translate(ctx context.Context, text, sourceLocale, targetLocale string) (string, error)

	// DetectLocale guesses the language tag of text. Returns an
	// empty string when detection is inconclusive.
	DetectLocale(ctx context.Context, text string) (string, error)
}
