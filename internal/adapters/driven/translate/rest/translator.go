// Package rest provides a translation gateway adapter speaking a
// simple JSON-over-HTTP protocol, compatible with self-hosted
// translation services such as LibreTranslate.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Translator implements the interface.
var _ driven.Translator = (*Translator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for the translation gateway.
type Config struct {
	// BaseURL is the translation service base URL.
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration
}

// Translator calls an external translation service over HTTP.
type Translator struct {
	client  *http.Client
	baseURL string
}

// translateRequest is the /translate request format.
type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

// translateResponse is the /translate response format.
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// detectResponse is one element of the /detect response.
type detectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// New creates a new translation gateway adapter.
func New(cfg Config) *Translator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Translator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Translate converts text from sourceLocale to targetLocale.
func (t *Translator) Translate(ctx context.Context, text, sourceLocale, targetLocale string) (string, error) {
	if text == "" || sourceLocale == targetLocale {
		return text, nil
	}

	reqBody := translateRequest{
		Q:      text,
		Source: sourceLocale,
		Target: targetLocale,
		Format: "text",
	}
	if reqBody.Source == "" {
		reqBody.Source = "auto"
	}

	var resp translateResponse
	if err := t.post(ctx, "/translate", reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranslation, err)
	}
	return resp.TranslatedText, nil
}

// DetectLocale guesses the language tag of text.
func (t *Translator) DetectLocale(ctx context.Context, text string) (string, error) {
	var resp []detectResponse
	if err := t.post(ctx, "/detect", map[string]string{"q": text}, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranslation, err)
	}
	if len(resp) == 0 {
		return "", nil
	}
	return resp[0].Language, nil
}

// post sends a JSON request and decodes the JSON response into out.
func (t *Translator) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.baseURL+path,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("gateway error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
