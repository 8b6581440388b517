// Package github provides a provider adapter over the GitHub API.
// It fetches repository readmes and issues, resuming incrementally
// from a per-repository cursor.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.ProviderAdapter = (*Provider)(nil)

const (
	// DefaultTimeout is the HTTP request timeout for API calls.
	DefaultTimeout = 30 * time.Second

	// requestsPerSecond keeps well under the authenticated API quota.
	requestsPerSecond = 5
)

// Provider fetches documents from a fixed set of GitHub repositories.
type Provider struct {
	providerID string
	repos      []repoRef
	token      string
	locale     string
	limiter    *rate.Limiter

	mu     sync.Mutex
	client *gh.Client
	closed bool
}

type repoRef struct {
	owner string
	name  string
}

// New creates a GitHub provider. Required settings: "token" and
// "repos" as a list of "owner/name" strings.
func New(provider domain.Provider) (*Provider, error) {
	token, _ := provider.Settings["token"].(string)
	if token == "" {
		return nil, fmt.Errorf("%w: github provider %s needs a token",
			domain.ErrAuth, provider.ID)
	}

	var names []string
	switch raw := provider.Settings["repos"].(type) {
	case []any:
		for _, r := range raw {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = raw
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: github provider %s needs repos",
			domain.ErrInvalidInput, provider.ID)
	}

	repos := make([]repoRef, 0, len(names))
	for _, full := range names {
		owner, name, ok := strings.Cut(full, "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("%w: repo %q is not owner/name",
				domain.ErrInvalidInput, full)
		}
		repos = append(repos, repoRef{owner: owner, name: name})
	}

	return &Provider{
		providerID: provider.ID,
		repos:      repos,
		token:      token,
		locale:     provider.Locale,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// Type returns the adapter type identifier.
func (p *Provider) Type() string {
	return "github"
}

// ProviderID returns the configured provider ID.
func (p *Provider) ProviderID() string {
	return p.providerID
}

// Capabilities returns what this adapter supports.
func (p *Provider) Capabilities() driven.ProviderCapabilities {
	return driven.ProviderCapabilities{
		SupportsWatch:  false, // No webhook receiver
		SupportsCursor: true,
		RequiresAuth:   true,
		Locale:         p.locale,
		SignatureHint:  "url",
	}
}

// ensureClient builds the authenticated API client lazily so the
// token is only exchanged when actually needed.
func (p *Provider) ensureClient(ctx context.Context) *gh.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.token})
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = DefaultTimeout
		p.client = gh.NewClient(tc)
	}
	return p.client
}

// Validate confirms the token authenticates against the API.
func (p *Provider) Validate(ctx context.Context) error {
	client := p.ensureClient(ctx)

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: github token rejected", domain.ErrAuth)
		}
		return fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	return nil
}

// Fetch streams readmes and issues for every configured repository,
// resuming issues from the per-repo cursor. A repository that fails
// is logged and skipped; its cursor entry is carried over untouched.
func (p *Provider) Fetch(ctx context.Context, cur string) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	client := p.ensureClient(ctx)
	previous := DecodeCursor(cur)

	go func() {
		defer close(docs)
		defer close(errs)

		next := NewCursor()
		for _, repo := range p.repos {
			if ctx.Err() != nil {
				return
			}

			full := repo.owner + "/" + repo.name
			repoCursor := previous.Repos[full]

			readme, err := p.fetchReadme(ctx, client, repo, &repoCursor)
			if err != nil {
				logger.Warn("Readme for %s failed: %v", full, err)
			} else if readme != nil {
				if !send(ctx, docs, *readme) {
					return
				}
			}

			issues, err := p.fetchIssues(ctx, client, repo, &repoCursor)
			if err != nil {
				logger.Warn("Issues for %s failed: %v", full, err)
				next.Repos[full] = previous.Repos[full]
				continue
			}
			for _, doc := range issues {
				if !send(ctx, docs, doc) {
					return
				}
			}

			next.Repos[full] = repoCursor
		}

		errs <- &driven.FetchComplete{NewCursor: next.Encode()}
	}()

	return docs, errs
}

// fetchReadme returns the repository readme, or nil when it is
// unchanged since the cursor or absent.
func (p *Provider) fetchReadme(ctx context.Context, client *gh.Client, repo repoRef, cursor *RepoCursor) (*domain.RawDocument, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	readme, resp, err := client.Repositories.GetReadme(ctx, repo.owner, repo.name, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	if readme.GetSHA() == cursor.ReadmeSHA {
		return nil, nil
	}

	content, err := readme.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%w: decode readme: %w", domain.ErrFetch, err)
	}
	cursor.ReadmeSHA = readme.GetSHA()

	return &domain.RawDocument{
		ProviderID: p.providerID,
		ExternalID: readme.GetHTMLURL(),
		Payload:    content,
		Locale:     p.locale,
		FetchedAt:  time.Now(),
	}, nil
}

// fetchIssues returns issues updated since the cursor, excluding pull
// requests, and advances the cursor to the newest update seen.
func (p *Provider) fetchIssues(ctx context.Context, client *gh.Client, repo repoRef, cursor *RepoCursor) ([]domain.RawDocument, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	if !cursor.IssuesSince.IsZero() {
		opts.Since = cursor.IssuesSince
	}

	var docs []domain.RawDocument
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		issues, resp, err := client.Issues.ListByRepo(ctx, repo.owner, repo.name, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			if issue.GetUpdatedAt().Time.After(cursor.IssuesSince) {
				cursor.IssuesSince = issue.GetUpdatedAt().Time
			}
			docs = append(docs, domain.RawDocument{
				ProviderID: p.providerID,
				ExternalID: issue.GetHTMLURL(),
				Payload:    issue.GetTitle() + "\n\n" + issue.GetBody(),
				Locale:     p.locale,
				FetchedAt:  issue.GetUpdatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return docs, nil
}

// Watch is not supported; there is no webhook receiver.
func (p *Provider) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	return nil, fmt.Errorf("%w: github provider does not watch", domain.ErrUnsupportedType)
}

// Close releases resources.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func send(ctx context.Context, docs chan<- domain.RawDocument, doc domain.RawDocument) bool {
	select {
	case <-ctx.Done():
		return false
	case docs <- doc:
		return true
	}
}
