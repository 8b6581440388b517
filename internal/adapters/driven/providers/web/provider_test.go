package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

const lastModified = "Tue, 14 Jan 2025 10:00:00 GMT"

func newPageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-Modified-Since") == lastModified {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", lastModified)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

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

func TestProviderRequiresURLs(t *testing.T) {
	_, err := New(domain.Provider{ID: "web", Settings: map[string]any{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateRejectsBadScheme(t *testing.T) {
	p, err := New(domain.Provider{
		ID:       "web",
		Settings: map[string]any{"urls": []any{"ftp://example.com/file"}},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(context.Background()), domain.ErrInvalidInput)
}

func TestFetchDownloadsPages(t *testing.T) {
	server := newPageServer(t, "<html><body>release notes</body></html>")

	p, err := New(domain.Provider{
		ID:       "web",
		Settings: map[string]any{"urls": []any{server.URL}},
	})
	require.NoError(t, err)
	require.NoError(t, p.Validate(context.Background()))

	docs, cursor := drain(t, p, "")
	require.Len(t, docs, 1)
	assert.Equal(t, server.URL, docs[0].ExternalID)
	assert.Contains(t, docs[0].Payload, "release notes")
	assert.NotEmpty(t, cursor)
}

// A page answering 304 for the cursor's validator is skipped.
func TestFetchSkipsUnmodifiedPages(t *testing.T) {
	server := newPageServer(t, "stable page")

	p, err := New(domain.Provider{
		ID:       "web",
		Settings: map[string]any{"urls": []any{server.URL}},
	})
	require.NoError(t, err)

	_, cursor := drain(t, p, "")
	require.NotEmpty(t, cursor)

	docs, next := drain(t, p, cursor)
	assert.Empty(t, docs)
	assert.Equal(t, cursor, next)
}

// One failing page must not fail the run or hide the healthy ones.
func TestFetchSkipsFailingPage(t *testing.T) {
	healthy := newPageServer(t, "healthy page")
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	p, err := New(domain.Provider{
		ID:       "web",
		Settings: map[string]any{"urls": []any{broken.URL, healthy.URL}},
	})
	require.NoError(t, err)

	docs, cursor := drain(t, p, "")
	require.Len(t, docs, 1)
	assert.Equal(t, healthy.URL, docs[0].ExternalID)
	assert.NotEmpty(t, cursor)
}

func TestCursorRoundTrip(t *testing.T) {
	c := cursor{"https://example.com/a": lastModified}
	decoded := decodeCursor(c.encode())
	assert.Equal(t, c, decoded)

	assert.Empty(t, decodeCursor("not base64!"))
	assert.Empty(t, cursor{}.encode())
}
