// Package config provides configuration loading for a retriever mesh
// server. Configuration is a TOML file describing the server identity,
// its static neighbor topology, federation limits, the dedup scope and
// the set of providers to ingest from.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// Config is the complete server configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Federation FederationConfig `toml:"federation"`
	Ingest     IngestConfig     `toml:"ingest"`
	Store      StoreConfig      `toml:"store"`
	Queue      QueueConfig      `toml:"queue"`
	Translate  TranslateConfig  `toml:"translate"`
	Providers  []ProviderConfig `toml:"providers"`
}

// ServerConfig identifies this server in the mesh.
type ServerConfig struct {
	// ID is the unique server identifier. Required.
	ID string `toml:"id"`
	// Listen is the address the HTTP API binds to.
	Listen string `toml:"listen"`
}

// NeighborConfig is one statically configured direct neighbor.
type NeighborConfig struct {
	// ID is the neighbor's server identifier.
	ID string `toml:"id"`
	// Address is the neighbor's base URL.
	Address string `toml:"address"`
}

// FederationConfig bounds query propagation.
type FederationConfig struct {
	// Neighbors is the static direct-neighbor topology.
	Neighbors []NeighborConfig `toml:"neighbors"`
	// MaxHops is the initial hop budget for queries entering here.
	MaxHops int `toml:"max_hops"`
	// QueryDeadline is the whole-query time budget.
	QueryDeadline time.Duration `toml:"query_deadline"`
	// HopTimeout bounds each individual neighbor call.
	HopTimeout time.Duration `toml:"hop_timeout"`
	// ResultCap truncates merged summaries.
	ResultCap int `toml:"result_cap"`
	// HeartbeatInterval is how often neighbors are pinged.
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`
	// HeartbeatMisses marks a neighbor DOWN after this many
	// consecutive failed pings.
	HeartbeatMisses int `toml:"heartbeat_misses"`
}

// IngestConfig tunes the ingestion scheduler and pipeline.
type IngestConfig struct {
	// Workers bounds concurrent provider fetches.
	Workers int `toml:"workers"`
	// FetchRate caps fetch dispatches per second across providers,
	// respecting source rate limits.
	FetchRate float64 `toml:"fetch_rate"`
	// DedupScope is "strict" (global) or "provider".
	DedupScope string `toml:"dedup_scope"`
	// TranslateRetries caps translation attempts per document
	// before dead-lettering.
	TranslateRetries int `toml:"translate_retries"`
	// TranslateBackoff is the initial retry backoff; it doubles per
	// attempt.
	TranslateBackoff time.Duration `toml:"translate_backoff"`
}

// StoreConfig locates the SQLite store.
type StoreConfig struct {
	// DataDir is the directory holding the database file.
	// Empty means ~/.kayf/data.
	DataDir string `toml:"data_dir"`
}

// QueueConfig configures the embedding queue connection.
type QueueConfig struct {
	// NATSURL is the NATS server URL. Empty disables publishing
	// (admitted documents are persisted but not enqueued).
	NATSURL string `toml:"nats_url"`
	// Subject is the publish subject for embedding payloads.
	Subject string `toml:"subject"`
	// Stream is the JetStream stream expected to capture Subject.
	Stream string `toml:"stream"`
}

// TranslateConfig configures the translation gateway adapter.
type TranslateConfig struct {
	// Endpoint is the translation service base URL.
	Endpoint string `toml:"endpoint"`
	// Timeout bounds each translation call.
	Timeout time.Duration `toml:"timeout"`
}

// ProviderConfig declares one provider to ingest from.
type ProviderConfig struct {
	ID       string         `toml:"id"`
	Type     string         `toml:"type"`
	Interval time.Duration  `toml:"interval"`
	Locale   string         `toml:"locale"`
	Enabled  bool           `toml:"enabled"`
	Settings map[string]any `toml:"settings"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:7680",
		},
		Federation: FederationConfig{
			MaxHops:           3,
			QueryDeadline:     10 * time.Second,
			HopTimeout:        3 * time.Second,
			ResultCap:         50,
			HeartbeatInterval: 15 * time.Second,
			HeartbeatMisses:   3,
		},
		Ingest: IngestConfig{
			Workers:          4,
			FetchRate:        2,
			DedupScope:       string(domain.ScopeStrict),
			TranslateRetries: 3,
			TranslateBackoff: time.Second,
		},
		Queue: QueueConfig{
			Subject: "retriever.embedding",
			Stream:  "RETRIEVER",
		},
		Translate: TranslateConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads configuration from a TOML file, applied over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.ID == "" {
		return fmt.Errorf("server.id is required")
	}
	if c.Federation.MaxHops < 0 {
		return fmt.Errorf("federation.max_hops must not be negative")
	}
	if c.Federation.HopTimeout <= 0 {
		return fmt.Errorf("federation.hop_timeout must be positive")
	}
	if c.Federation.QueryDeadline <= 0 {
		return fmt.Errorf("federation.query_deadline must be positive")
	}
	if c.Federation.HeartbeatMisses < 1 {
		return fmt.Errorf("federation.heartbeat_misses must be at least 1")
	}
	if !domain.DedupScope(c.Ingest.DedupScope).Valid() {
		return fmt.Errorf("ingest.dedup_scope must be %q or %q",
			domain.ScopeStrict, domain.ScopeProvider)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1")
	}
	seen := make(map[string]bool, len(c.Federation.Neighbors))
	for _, n := range c.Federation.Neighbors {
		if n.ID == "" || n.Address == "" {
			return fmt.Errorf("neighbor entries need id and address")
		}
		if n.ID == c.Server.ID {
			return fmt.Errorf("neighbor %s duplicates server.id", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate neighbor id %s", n.ID)
		}
		seen[n.ID] = true
	}
	for _, p := range c.Providers {
		if p.ID == "" || p.Type == "" {
			return fmt.Errorf("provider entries need id and type")
		}
		if p.Interval <= 0 {
			return fmt.Errorf("provider %s: interval must be positive", p.ID)
		}
	}
	return nil
}

// DomainProviders converts configured providers to domain values.
func (c *Config) DomainProviders() []domain.Provider {
	providers := make([]domain.Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		providers = append(providers, domain.Provider{
			ID:            p.ID,
			Type:          p.Type,
			FetchInterval: p.Interval,
			Locale:        p.Locale,
			Settings:      p.Settings,
			Enabled:       p.Enabled,
		})
	}
	return providers
}
