// Package web provides a provider adapter that fetches a configured
// set of web pages over HTTP. Incremental fetches use conditional
// requests keyed on each page's Last-Modified header.
package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.ProviderAdapter = (*Provider)(nil)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize bounds how much of a page the provider will read.
	MaxBodySize = 5 << 20 // 5 MiB

	// UserAgent identifies fetches to origin servers.
	UserAgent = "kayf-retriever/1.0"
)

// cursor maps page URL to the Last-Modified value seen on the last
// fetch, serialized as base64 JSON.
type cursor map[string]string

func decodeCursor(s string) cursor {
	if s == "" {
		return cursor{}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return cursor{}
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor{}
	}
	return c
}

func (c cursor) encode() string {
	if len(c) == 0 {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Provider fetches a fixed list of pages.
type Provider struct {
	providerID string
	urls       []string
	locale     string
	client     *http.Client

	mu     sync.Mutex
	closed bool
}

// New creates a web provider. The "urls" setting is required.
func New(provider domain.Provider) (*Provider, error) {
	var urls []string
	switch raw := provider.Settings["urls"].(type) {
	case []any:
		for _, u := range raw {
			if s, ok := u.(string); ok {
				urls = append(urls, s)
			}
		}
	case []string:
		urls = raw
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: web provider %s needs urls",
			domain.ErrInvalidInput, provider.ID)
	}

	return &Provider{
		providerID: provider.ID,
		urls:       urls,
		locale:     provider.Locale,
		client:     &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Type returns the adapter type identifier.
func (p *Provider) Type() string {
	return "web"
}

// ProviderID returns the configured provider ID.
func (p *Provider) ProviderID() string {
	return p.providerID
}

// Capabilities returns what this adapter supports.
func (p *Provider) Capabilities() driven.ProviderCapabilities {
	return driven.ProviderCapabilities{
		SupportsWatch:  false,
		SupportsCursor: true,
		RequiresAuth:   false,
		Locale:         p.locale,
		SignatureHint:  "url",
	}
}

// Validate checks every configured URL parses and uses http or https.
func (p *Provider) Validate(_ context.Context) error {
	for _, raw := range p.urls {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: url %q: %w", domain.ErrInvalidInput, raw, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%w: url %q: unsupported scheme", domain.ErrInvalidInput, raw)
		}
	}
	return nil
}

// Fetch retrieves each configured page. Pages unchanged since the
// cursor answer 304 and are skipped; individual page failures are
// logged and skipped rather than failing the run.
func (p *Provider) Fetch(ctx context.Context, cur string) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	seen := decodeCursor(cur)

	go func() {
		defer close(docs)
		defer close(errs)

		next := cursor{}
		for _, pageURL := range p.urls {
			if ctx.Err() != nil {
				return
			}

			doc, lastModified, err := p.fetchPage(ctx, pageURL, seen[pageURL])
			if err != nil {
				logger.Warn("Fetching %s failed: %v", pageURL, err)
				// Keep the old validator so the page is retried
				// unconditionally next run.
				continue
			}
			if lastModified != "" {
				next[pageURL] = lastModified
			}
			if doc == nil {
				// Not modified.
				continue
			}

			select {
			case <-ctx.Done():
				return
			case docs <- *doc:
			}
		}

		errs <- &driven.FetchComplete{NewCursor: next.encode()}
	}()

	return docs, errs
}

// fetchPage retrieves one page, conditionally when a previous
// Last-Modified value is known. A nil document with nil error means
// the page has not changed.
func (p *Provider) fetchPage(ctx context.Context, pageURL, ifModifiedSince string) (*domain.RawDocument, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if ifModifiedSince != "" {
		req.Header.Set("If-Modified-Since", ifModifiedSince)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, ifModifiedSince, nil
	case resp.StatusCode >= 400:
		return nil, "", fmt.Errorf("%w: %s returned %d", domain.ErrFetch, pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %w", domain.ErrFetch, pageURL, err)
	}

	doc := &domain.RawDocument{
		ProviderID: p.providerID,
		ExternalID: pageURL,
		Payload:    string(body),
		Locale:     p.locale,
		FetchedAt:  time.Now(),
	}
	return doc, resp.Header.Get("Last-Modified"), nil
}

// Watch is not supported; pages are polled on the fetch interval.
func (p *Provider) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	return nil, fmt.Errorf("%w: web provider does not watch", domain.ErrUnsupportedType)
}

// Close releases resources.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.client.CloseIdleConnections()
	return nil
}
