package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
	"github.com/kayf-project/retriever/internal/signature"
)

// PipelineConfig tunes retry behaviour and dedup scope.
type PipelineConfig struct {
	// Scope is the dedup scope applied to every signature.
	Scope domain.DedupScope

	// TranslateRetries is how many times a failed translation is
	// retried before the document is dead-lettered.
	TranslateRetries int

	// TranslateBackoff is the base delay between retries. Doubles
	// on each attempt.
	TranslateBackoff time.Duration
}

// Pipeline runs one raw document through clean, translate, dedup
// admission, persistence and embedding hand-off. Failures are isolated
// per document: an error from Process never poisons the batch.
type Pipeline struct {
	cfg        PipelineConfig
	cleaners   driven.CleanerRegistry
	translator driven.Translator
	dedup      driven.DedupStore
	docs       driven.DocumentStore
	queue      driven.EmbeddingQueue
	letters    driven.DeadLetterStore

	now func() time.Time
}

// NewPipeline wires the document pipeline.
func NewPipeline(
	cfg PipelineConfig,
	cleaners driven.CleanerRegistry,
	translator driven.Translator,
	dedup driven.DedupStore,
	docs driven.DocumentStore,
	queue driven.EmbeddingQueue,
	letters driven.DeadLetterStore,
) *Pipeline {
	if cfg.TranslateRetries < 0 {
		cfg.TranslateRetries = 0
	}
	if !cfg.Scope.Valid() {
		cfg.Scope = domain.ScopeStrict
	}
	return &Pipeline{
		cfg:        cfg,
		cleaners:   cleaners,
		translator: translator,
		dedup:      dedup,
		docs:       docs,
		queue:      queue,
		letters:    letters,
		now:        time.Now,
	}
}

// Process runs raw through the full pipeline. Returns true when the
// document won dedup admission and was persisted, false when it was
// recognised as a duplicate or produced no content after cleaning.
func (p *Pipeline) Process(ctx context.Context, raw domain.RawDocument) (bool, error) {
	cleaned, err := p.cleaners.Clean(ctx, raw.Payload)
	if err != nil {
		return false, fmt.Errorf("clean %s: %w", raw.ExternalID, err)
	}

	canonical := signature.Canonicalize(cleaned)
	if canonical == "" {
		logger.Debug("Skipping %s: empty after cleaning", raw.ExternalID)
		return false, nil
	}

	locale := p.resolveLocale(ctx, raw, canonical)

	translated, err := p.translateWithRetry(ctx, canonical, locale)
	if err != nil {
		p.deadLetter(ctx, raw, err)
		return false, err
	}

	sig := signature.Compute(p.cfg.Scope, raw.ProviderID, canonical)
	docID := uuid.New().String()

	admission, err := p.dedup.CheckAndInsert(ctx, sig, docID)
	if err != nil {
		return false, fmt.Errorf("admission for %s: %w", raw.ExternalID, err)
	}

	origin := domain.Origin{
		Timestamp:   raw.FetchedAt,
		Locale:      locale,
		ExternalRef: raw.ExternalID,
	}

	if !admission.Inserted {
		// Duplicate content. Persistence and embedding are skipped;
		// only the existing document's sighting metadata moves.
		logger.Debug("Duplicate %s (existing ref %s)", raw.ExternalID, admission.ExistingRef)
		if err := p.docs.RefreshMetadata(ctx, sig, origin); err != nil {
			logger.Debug("Metadata refresh for %s failed: %v", sig, err)
		}
		return false, nil
	}

	now := p.now()
	doc := &domain.Document{
		ID:         docID,
		Signature:  sig,
		ProviderID: raw.ProviderID,
		Canonical:  canonical,
		Translated: translated,
		Origin:     origin,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.docs.SaveDocument(ctx, doc); err != nil {
		// Release the admission so the next sighting of this content
		// can persist it; a claimed signature without a document
		// would shunt every re-sighting onto the duplicate path.
		if rollbackErr := p.dedup.Remove(ctx, sig); rollbackErr != nil {
			logger.Warn("Admission rollback for %s failed: %v", sig, rollbackErr)
		}
		return false, fmt.Errorf("persist %s: %w", raw.ExternalID, err)
	}

	if err := p.queue.Publish(ctx, driven.EmbeddingPayload{
		DocumentID: doc.ID,
		Signature:  doc.Signature,
		Canonical:  doc.Canonical,
		Translated: doc.Translated,
	}); err != nil {
		// The document is persisted; a failed hand-off is surfaced
		// but the admission stands. The queue is durable and the
		// payload keyed by signature, so a later re-sighting cannot
		// double-index.
		return true, fmt.Errorf("publish %s: %w", raw.ExternalID, err)
	}

	return true, nil
}

// resolveLocale picks the document language: declared on the raw
// document, else detected, else English.
func (p *Pipeline) resolveLocale(ctx context.Context, raw domain.RawDocument, canonical string) string {
	if raw.Locale != "" {
		return raw.Locale
	}
	detected, err := p.translator.DetectLocale(ctx, canonical)
	if err != nil || detected == "" {
		logger.Debug("Locale detection inconclusive for %s, assuming en", raw.ExternalID)
		return "en"
	}
	return detected
}

// translateWithRetry translates canonical into English, retrying with
// doubling backoff up to the configured cap.
func (p *Pipeline) translateWithRetry(ctx context.Context, canonical, locale string) (string, error) {
	if locale == "en" {
		return canonical, nil
	}

	var lastErr error
	backoff := p.cfg.TranslateBackoff
	for attempt := 0; attempt <= p.cfg.TranslateRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", domain.ErrTranslation, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		translated, err := p.translator.Translate(ctx, canonical, locale, "en")
		if err == nil {
			return translated, nil
		}
		lastErr = err
		logger.Debug("Translation attempt %d failed: %v", attempt+1, err)
	}

	return "", fmt.Errorf("%w after %d attempts: %w",
		domain.ErrTranslation, p.cfg.TranslateRetries+1, lastErr)
}

// deadLetter records a document that exhausted its retries. Recording
// failures are logged, never propagated, so one bad letter cannot stall
// the rest of the batch.
func (p *Pipeline) deadLetter(ctx context.Context, raw domain.RawDocument, cause error) {
	letter := driven.DeadLetter{
		ProviderID:  raw.ProviderID,
		ExternalRef: raw.ExternalID,
		Stage:       "translate",
		Reason:      cause.Error(),
		Attempts:    p.cfg.TranslateRetries + 1,
		RecordedAt:  p.now(),
	}
	if err := p.letters.Record(ctx, letter); err != nil {
		logger.Warn("Failed to record dead letter for %s: %v", raw.ExternalID, err)
		return
	}
	logger.Warn("Dead-lettered %s after %d translation attempts", raw.ExternalID, letter.Attempts)
}
