package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

func newTestProvider(t *testing.T, root string) *Provider {
	t.Helper()
	p, err := New(domain.Provider{
		ID:       "fs",
		Type:     "filesystem",
		Settings: map[string]any{"root": root},
	})
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, root, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

// drain collects all documents and the completion cursor from a fetch.
func drain(t *testing.T, p *Provider, cursor string) ([]domain.RawDocument, string) {
	t.Helper()
	docs, errs := p.Fetch(context.Background(), cursor)

	var collected []domain.RawDocument
	newCursor := ""
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			collected = append(collected, doc)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fc, done := driven.IsFetchComplete(err)
			require.True(t, done, "unexpected fetch error: %v", err)
			newCursor = fc.NewCursor
		}
	}
	return collected, newCursor
}

func TestProviderRequiresRoot(t *testing.T) {
	_, err := New(domain.Provider{ID: "fs", Settings: map[string]any{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateMissingRoot(t *testing.T) {
	p := newTestProvider(t, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, p.Validate(context.Background()))
}

func TestFetchWalksMatchingFiles(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFile(t, root, "a.md", "alpha notes", base)
	writeFile(t, root, "sub/b.txt", "beta notes", base.Add(time.Minute))
	writeFile(t, root, "c.bin", "ignored", base)
	writeFile(t, root, ".hidden/d.md", "ignored", base)

	p := newTestProvider(t, root)
	require.NoError(t, p.Validate(context.Background()))

	docs, cursor := drain(t, p, "")
	require.Len(t, docs, 2)
	assert.NotEmpty(t, cursor)

	ids := map[string]string{}
	for _, doc := range docs {
		ids[filepath.Base(doc.ExternalID)] = doc.Payload
		assert.Equal(t, "fs", doc.ProviderID)
	}
	assert.Equal(t, "alpha notes", ids["a.md"])
	assert.Equal(t, "beta notes", ids["b.txt"])
}

func TestFetchResumesFromCursor(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFile(t, root, "old.md", "old content", base)

	p := newTestProvider(t, root)
	docs, cursor := drain(t, p, "")
	require.Len(t, docs, 1)

	// Nothing new: the incremental fetch is empty and the cursor is
	// carried forward.
	docs, unchanged := drain(t, p, cursor)
	assert.Empty(t, docs)
	assert.Equal(t, cursor, unchanged)

	writeFile(t, root, "new.md", "new content", base.Add(2*time.Hour))
	docs, next := drain(t, p, cursor)
	require.Len(t, docs, 1)
	assert.Equal(t, "new content", docs[0].Payload)
	assert.NotEqual(t, cursor, next)
}

func TestFetchCustomExtensions(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeFile(t, root, "a.rst", "rst content", now)
	writeFile(t, root, "b.md", "md content", now)

	p, err := New(domain.Provider{
		ID:       "fs",
		Settings: map[string]any{"root": root, "extensions": []any{".rst"}},
	})
	require.NoError(t, err)

	docs, _ := drain(t, p, "")
	require.Len(t, docs, 1)
	assert.Equal(t, "rst content", docs[0].Payload)
}

func TestWatchReportsChanges(t *testing.T) {
	root := t.TempDir()
	p := newTestProvider(t, root)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := p.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "live.md"), []byte("live content"), 0o644))

	select {
	case change := <-changes:
		assert.Equal(t, domain.ChangeCreated, change.Type)
		assert.Equal(t, filepath.Join(root, "live.md"), change.Document.ExternalID)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event received")
	}
}

func TestCapabilities(t *testing.T) {
	p := newTestProvider(t, t.TempDir())
	caps := p.Capabilities()
	assert.True(t, caps.SupportsWatch)
	assert.True(t, caps.SupportsCursor)
	assert.False(t, caps.RequiresAuth)
}
