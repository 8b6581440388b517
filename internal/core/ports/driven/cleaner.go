package driven

import "context"

// Cleaner strips markup and noise from raw payloads of one text type.
type Cleaner interface {
	// Type returns the text type identifier this cleaner handles.
	Type() string

	// Clean returns the plain-text content of payload.
	Clean(ctx context.Context, payload string) (string, error)
}

// CleanerRegistry detects the text type of a payload and dispatches to
// the matching cleaner, falling back to plain text.
type CleanerRegistry interface {
	// Clean detects the payload's text type and strips its markup.
	Clean(ctx context.Context, payload string) (string, error)

	// Register adds a cleaner to the registry.
	Register(cleaner Cleaner)
}
