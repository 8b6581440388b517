package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kayf-project/retriever/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document, dedup, provider-state and dead-letter store interfaces
// through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kayf/data/retriever.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kayf", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "retriever.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// DedupStore returns a DedupStore interface backed by this store.
func (s *Store) DedupStore() driven.DedupStore {
	return &dedupStore{store: s}
}

// ProviderStateStore returns a ProviderStateStore interface backed by
// this store.
func (s *Store) ProviderStateStore() driven.ProviderStateStore {
	return &providerStateStore{store: s}
}

// DeadLetterStore returns a DeadLetterStore interface backed by this
// store.
func (s *Store) DeadLetterStore() driven.DeadLetterStore {
	return &deadLetterStore{store: s}
}

// ListAll returns every persisted document. Used by the keyword search
// engine to scan the local corpus.
func (s *Store) ListAll(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signature, provider_id, canonical, translated,
			origin_ts, origin_locale, origin_ref, version, created_at, updated_at
		FROM documents
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrStore, err)
	}
	return docs, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Dedup Store ====================

// dedupStore implements driven.DedupStore.
type dedupStore struct {
	store *Store
}

var _ driven.DedupStore = (*dedupStore)(nil)

// CheckAndInsert atomically claims a signature for documentRef. The
// conditional insert relies on the signature primary key: exactly one
// concurrent caller's row lands, everyone else reads the winner's ref.
func (s *dedupStore) CheckAndInsert(ctx context.Context, sig, documentRef string) (driven.Admission, error) {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO admissions (signature, document_ref)
		VALUES (?, ?)
		ON CONFLICT(signature) DO NOTHING
	`, sig, documentRef)
	if err != nil {
		return driven.Admission{}, fmt.Errorf("%w: admission insert: %w", domain.ErrStore, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return driven.Admission{}, fmt.Errorf("%w: admission result: %w", domain.ErrStore, err)
	}
	if affected == 1 {
		return driven.Admission{Inserted: true}, nil
	}

	var existing string
	row := s.store.db.QueryRowContext(ctx,
		"SELECT document_ref FROM admissions WHERE signature = ?", sig)
	if err := row.Scan(&existing); err != nil {
		return driven.Admission{}, fmt.Errorf("%w: admission lookup: %w", domain.ErrStore, err)
	}
	return driven.Admission{Inserted: false, ExistingRef: existing}, nil
}

// Remove releases a claimed signature so the content can be admitted
// again after a failed persist.
func (s *dedupStore) Remove(ctx context.Context, sig string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM admissions WHERE signature = ?", sig); err != nil {
		return fmt.Errorf("%w: admission delete: %w", domain.ErrStore, err)
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores a new document. Re-saving an existing signature
// fails: persisted content is immutable.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Version == 0 {
		doc.Version = 1
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, signature, provider_id, canonical, translated,
			origin_ts, origin_locale, origin_ref, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Signature, doc.ProviderID, doc.Canonical, doc.Translated,
		doc.Origin.Timestamp, doc.Origin.Locale, doc.Origin.ExternalRef,
		doc.Version, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrStore, err)
	}
	return nil
}

// GetBySignature retrieves a document by content signature.
func (s *documentStore) GetBySignature(ctx context.Context, sig string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, signature, provider_id, canonical, translated,
			origin_ts, origin_locale, origin_ref, version, created_at, updated_at
		FROM documents WHERE signature = ?
	`, sig)
	return scanDocument(row)
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, signature, provider_id, canonical, translated,
			origin_ts, origin_locale, origin_ref, version, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// RefreshMetadata updates origin metadata for the document with the
// given signature, bumping its version. Content columns are never
// touched.
func (s *documentStore) RefreshMetadata(ctx context.Context, sig string, origin domain.Origin) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents
		SET origin_ts = ?, origin_locale = ?, origin_ref = ?,
			version = version + 1, updated_at = ?
		WHERE signature = ?
	`, origin.Timestamp, origin.Locale, origin.ExternalRef, time.Now().UTC(), sig)
	if err != nil {
		return fmt.Errorf("%w: refreshing metadata: %w", domain.ErrStore, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: refresh result: %w", domain.ErrStore, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProvider returns documents ingested from a provider.
func (s *documentStore) ListByProvider(ctx context.Context, providerID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, signature, provider_id, canonical, translated,
			origin_ts, origin_locale, origin_ref, version, created_at, updated_at
		FROM documents WHERE provider_id = ?
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrStore, err)
	}
	return docs, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func scanDocumentRow(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var originTS sql.NullTime
	var originLocale, originRef sql.NullString

	if err := row.Scan(&doc.ID, &doc.Signature, &doc.ProviderID,
		&doc.Canonical, &doc.Translated,
		&originTS, &originLocale, &originRef,
		&doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrStore, err)
	}

	if originTS.Valid {
		doc.Origin.Timestamp = originTS.Time
	}
	doc.Origin.Locale = originLocale.String
	doc.Origin.ExternalRef = originRef.String
	return &doc, nil
}

// ==================== Provider State Store ====================

// providerStateStore implements driven.ProviderStateStore.
type providerStateStore struct {
	store *Store
}

var _ driven.ProviderStateStore = (*providerStateStore)(nil)

// Save stores or updates provider state.
func (s *providerStateStore) Save(ctx context.Context, state domain.ProviderState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO provider_states (provider_id, cursor, last_fetch)
		VALUES (?, ?, ?)
		ON CONFLICT(provider_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_fetch = excluded.last_fetch
	`, state.ProviderID, state.Cursor, state.LastFetch)
	if err != nil {
		return fmt.Errorf("%w: saving provider state: %w", domain.ErrStore, err)
	}
	return nil
}

// Get retrieves state for a provider.
func (s *providerStateStore) Get(ctx context.Context, providerID string) (*domain.ProviderState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT provider_id, cursor, last_fetch
		FROM provider_states WHERE provider_id = ?
	`, providerID)

	var state domain.ProviderState
	var lastFetch sql.NullTime
	if err := row.Scan(&state.ProviderID, &state.Cursor, &lastFetch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning provider state: %w", domain.ErrStore, err)
	}
	if lastFetch.Valid {
		state.LastFetch = lastFetch.Time
	}
	return &state, nil
}

// ==================== Dead Letter Store ====================

// deadLetterStore implements driven.DeadLetterStore.
type deadLetterStore struct {
	store *Store
}

var _ driven.DeadLetterStore = (*deadLetterStore)(nil)

// Record stores a dead letter.
func (s *deadLetterStore) Record(ctx context.Context, letter driven.DeadLetter) error {
	if letter.RecordedAt.IsZero() {
		letter.RecordedAt = time.Now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO dead_letters (provider_id, external_ref, stage, reason, attempts, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, letter.ProviderID, letter.ExternalRef, letter.Stage, letter.Reason,
		letter.Attempts, letter.RecordedAt)
	if err != nil {
		return fmt.Errorf("%w: recording dead letter: %w", domain.ErrStore, err)
	}
	return nil
}

// List returns dead letters for a provider, newest first.
func (s *deadLetterStore) List(ctx context.Context, providerID string) ([]driven.DeadLetter, error) {
	query := `
		SELECT provider_id, external_ref, stage, reason, attempts, recorded_at
		FROM dead_letters`
	args := []any{}
	if providerID != "" {
		query += " WHERE provider_id = ?"
		args = append(args, providerID)
	}
	query += " ORDER BY recorded_at DESC, id DESC"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying dead letters: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var letters []driven.DeadLetter //nolint:prealloc // size unknown from query
	for rows.Next() {
		var letter driven.DeadLetter
		if err := rows.Scan(&letter.ProviderID, &letter.ExternalRef, &letter.Stage,
			&letter.Reason, &letter.Attempts, &letter.RecordedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning dead letter: %w", domain.ErrStore, err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating dead letters: %w", domain.ErrStore, err)
	}
	return letters, nil
}
