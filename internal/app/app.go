// Package app assembles a retriever mesh server from configuration:
// storage, translation, the embedding queue, provider ingestion and
// the federated query router, all behind one HTTP listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	fedclient "github.com/kayf-project/retriever/internal/adapters/driven/federation"
	natsqueue "github.com/kayf-project/retriever/internal/adapters/driven/queue/nats"
	"github.com/kayf-project/retriever/internal/adapters/driven/providers"
	"github.com/kayf-project/retriever/internal/adapters/driven/search/keyword"
	"github.com/kayf-project/retriever/internal/adapters/driven/storage/sqlite"
	"github.com/kayf-project/retriever/internal/adapters/driven/translate/rest"
	"github.com/kayf-project/retriever/internal/adapters/driven/translate/static"
	"github.com/kayf-project/retriever/internal/adapters/driving/api"
	"github.com/kayf-project/retriever/internal/cleaners"
	"github.com/kayf-project/retriever/internal/config"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
	"github.com/kayf-project/retriever/internal/core/services"
	"github.com/kayf-project/retriever/internal/logger"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App is a fully wired mesh server.
type App struct {
	cfg      *config.Config
	store    *sqlite.Store
	queue    driven.EmbeddingQueue
	registry *services.NeighborRegistry
	router   *services.Router
	ingestor *services.Ingestor
	sched    *services.FetchScheduler
	handler  http.Handler
}

// New builds an App from configuration. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var queue driven.EmbeddingQueue
	if cfg.Queue.NATSURL != "" {
		queue, err = natsqueue.New(ctx, natsqueue.Config{
			URL:     cfg.Queue.NATSURL,
			Subject: cfg.Queue.Subject,
			Stream:  cfg.Queue.Stream,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect embedding queue: %w", err)
		}
	} else {
		logger.Warn("No embedding queue configured, admitted documents are not enqueued")
		queue = discardQueue{}
	}

	var translator driven.Translator
	if cfg.Translate.Endpoint != "" {
		translator = rest.New(rest.Config{
			BaseURL: cfg.Translate.Endpoint,
			Timeout: cfg.Translate.Timeout,
		})
	} else {
		logger.Warn("No translation gateway configured, using pass-through tables")
		translator = static.New()
	}

	pipeline := services.NewPipeline(
		services.PipelineConfig{
			Scope:            domain.DedupScope(cfg.Ingest.DedupScope),
			TranslateRetries: cfg.Ingest.TranslateRetries,
			TranslateBackoff: cfg.Ingest.TranslateBackoff,
		},
		cleaners.NewRegistry(),
		translator,
		store.DedupStore(),
		store.DocumentStore(),
		queue,
		store.DeadLetterStore(),
	)

	domainProviders := cfg.DomainProviders()
	ingestor := services.NewIngestor(
		domainProviders,
		providers.NewFactory(),
		store.ProviderStateStore(),
		pipeline,
		cfg.Ingest.FetchRate,
	)
	sched := services.NewFetchScheduler(ingestor, domainProviders, cfg.Ingest.Workers)

	client := fedclient.NewHTTPClient()
	neighbors := make([]domain.ServerNode, 0, len(cfg.Federation.Neighbors))
	for _, n := range cfg.Federation.Neighbors {
		neighbors = append(neighbors, domain.ServerNode{ID: n.ID, Address: n.Address})
	}
	registry := services.NewNeighborRegistry(
		neighbors, client,
		cfg.Federation.HeartbeatInterval,
		cfg.Federation.HeartbeatMisses,
	)

	router := services.NewRouter(
		services.RouterConfig{
			ServerID:      cfg.Server.ID,
			MaxHops:       cfg.Federation.MaxHops,
			QueryDeadline: cfg.Federation.QueryDeadline,
			HopTimeout:    cfg.Federation.HopTimeout,
			ResultCap:     cfg.Federation.ResultCap,
		},
		translator,
		keyword.New(store),
		client,
		registry,
	)

	handler := api.NewRouter(api.NewHandler(router, ingestor, store.DeadLetterStore(), registry))

	return &App{
		cfg:      cfg,
		store:    store,
		queue:    queue,
		registry: registry,
		router:   router,
		ingestor: ingestor,
		sched:    sched,
		handler:  handler,
	}, nil
}

// Queries returns the query entry point.
func (a *App) Queries() driving.QueryService {
	return a.router
}

// Ingestor returns the ingestion orchestrator.
func (a *App) Ingestor() driving.IngestOrchestrator {
	return a.ingestor
}

// Close releases the store and queue.
func (a *App) Close() error {
	var errs []error
	if err := a.queue.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run starts the HTTP server, the fetch scheduler and the neighbor
// heartbeat, blocking until a shutdown signal or fatal error.
func (a *App) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    a.cfg.Server.Listen,
		Handler: a.handler,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server %s listening on %s", a.cfg.Server.ID, a.cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.sched.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.registry.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("heartbeat: %w", err)
		}
		return nil
	})

	// Watch-capable providers push changes between interval fetches.
	g.Go(func() error {
		return a.ingestor.WatchAll(gCtx)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received %s, shutting down", sig)
		case <-gCtx.Done():
		}

		a.sched.Stop()
		a.registry.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// discardQueue drops payloads when no queue is configured.
type discardQueue struct{}

func (discardQueue) Publish(_ context.Context, payload driven.EmbeddingPayload) error {
	logger.Debug("Discarding embedding payload for %s", payload.Signature)
	return nil
}

func (discardQueue) Close() error { return nil }
