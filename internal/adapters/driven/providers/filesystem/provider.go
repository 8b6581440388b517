// Package filesystem provides a provider adapter over a local
// directory tree. Files are fetched incrementally by modification
// time and changes can be watched in real time.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.ProviderAdapter = (*Provider)(nil)

// DefaultExtensions are the file extensions fetched when the provider
// settings do not name any.
var DefaultExtensions = []string{".md", ".txt", ".html", ".htm"}

// MaxFileSize bounds how large a file the provider will read.
const MaxFileSize = 10 << 20 // 10 MiB

// Provider fetches documents from a local directory tree.
type Provider struct {
	providerID string
	root       string
	extensions map[string]bool
	locale     string

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem provider from provider settings. The only
// required setting is "root"; "extensions" narrows which files are
// fetched.
func New(provider domain.Provider) (*Provider, error) {
	root, _ := provider.Settings["root"].(string)
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem provider %s needs a root",
			domain.ErrInvalidInput, provider.ID)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %w", domain.ErrInvalidInput, err)
	}

	extensions := make(map[string]bool)
	switch raw := provider.Settings["extensions"].(type) {
	case []any:
		for _, e := range raw {
			if ext, ok := e.(string); ok {
				extensions[strings.ToLower(ext)] = true
			}
		}
	case []string:
		for _, ext := range raw {
			extensions[strings.ToLower(ext)] = true
		}
	}
	if len(extensions) == 0 {
		for _, ext := range DefaultExtensions {
			extensions[ext] = true
		}
	}

	return &Provider{
		providerID: provider.ID,
		root:       root,
		extensions: extensions,
		locale:     provider.Locale,
	}, nil
}

// Type returns the adapter type identifier.
func (p *Provider) Type() string {
	return "filesystem"
}

// ProviderID returns the configured provider ID.
func (p *Provider) ProviderID() string {
	return p.providerID
}

// Capabilities returns what this adapter supports.
func (p *Provider) Capabilities() driven.ProviderCapabilities {
	return driven.ProviderCapabilities{
		SupportsWatch:  true,
		SupportsCursor: true,
		RequiresAuth:   false,
		Locale:         p.locale,
		SignatureHint:  "path",
	}
}

// Validate checks the root directory exists and is readable.
func (p *Provider) Validate(_ context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("%w: stat root %s: %w", domain.ErrFetch, p.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %s is not a directory", domain.ErrInvalidInput, p.root)
	}
	return nil
}

// Fetch walks the tree and streams every matching file modified after
// the cursor. The cursor is the latest modification time seen.
func (p *Provider) Fetch(ctx context.Context, cursor string) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	var since time.Time
	if cursor != "" {
		parsed, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			logger.Debug("Ignoring malformed cursor %q for %s", cursor, p.providerID)
		} else {
			since = parsed
		}
	}

	go func() {
		defer close(docs)
		defer close(errs)

		latest := since
		walkErr := filepath.WalkDir(p.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if entry.IsDir() {
				if strings.HasPrefix(entry.Name(), ".") && path != p.root {
					return filepath.SkipDir
				}
				return nil
			}
			if !p.matches(path) {
				return nil
			}

			info, err := entry.Info()
			if err != nil || info.Size() > MaxFileSize {
				return nil
			}
			if !since.IsZero() && !info.ModTime().After(since) {
				return nil
			}
			if info.ModTime().After(latest) {
				latest = info.ModTime()
			}

			payload, err := os.ReadFile(path)
			if err != nil {
				logger.Debug("Skipping unreadable file %s: %v", path, err)
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case docs <- p.rawDocument(path, string(payload), info.ModTime()):
			}
			return nil
		})

		if walkErr != nil {
			errs <- fmt.Errorf("%w: walk %s: %w", domain.ErrFetch, p.root, walkErr)
			return
		}

		newCursor := ""
		if !latest.IsZero() {
			newCursor = latest.Format(time.RFC3339Nano)
		}
		errs <- &driven.FetchComplete{NewCursor: newCursor}
	}()

	return docs, errs
}

// Watch streams file changes under the root until the context is
// cancelled. Directories created at runtime are added to the watch
// list.
func (p *Provider) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addDirsRecursive(watcher, p.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", p.root, err)
	}

	p.mu.Lock()
	p.watcher = watcher
	p.mu.Unlock()

	changes := make(chan domain.RawDocumentChange)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						if addErr := addDirsRecursive(watcher, event.Name); addErr != nil {
							logger.Debug("Watching new dir %s failed: %v", event.Name, addErr)
						}
						continue
					}
				}
				change, ok := p.toChange(event)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case changes <- change:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("Watcher error for %s: %v", p.providerID, err)
			}
		}
	}()

	return changes, nil
}

// Close releases the watcher if one is active.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.watcher != nil {
		err := p.watcher.Close()
		p.watcher = nil
		return err
	}
	return nil
}

func (p *Provider) matches(path string) bool {
	return p.extensions[strings.ToLower(filepath.Ext(path))]
}

func (p *Provider) rawDocument(path, payload string, modTime time.Time) domain.RawDocument {
	return domain.RawDocument{
		ProviderID: p.providerID,
		ExternalID: path,
		Payload:    payload,
		Locale:     p.locale,
		FetchedAt:  modTime,
	}
}

// toChange maps an fsnotify event to a document change. Only matching
// files produce changes.
func (p *Provider) toChange(event fsnotify.Event) (domain.RawDocumentChange, bool) {
	if !p.matches(event.Name) {
		return domain.RawDocumentChange{}, false
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				ProviderID: p.providerID,
				ExternalID: event.Name,
			},
		}, true

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		payload, err := os.ReadFile(event.Name)
		if err != nil {
			return domain.RawDocumentChange{}, false
		}
		changeType := domain.ChangeUpdated
		if event.Op&fsnotify.Create != 0 {
			changeType = domain.ChangeCreated
		}
		return domain.RawDocumentChange{
			Type:     changeType,
			Document: p.rawDocument(event.Name, string(payload), time.Now()),
		}, true
	}
	return domain.RawDocumentChange{}, false
}

// addDirsRecursive adds dir and every subdirectory to the watcher,
// skipping hidden directories.
func addDirsRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
