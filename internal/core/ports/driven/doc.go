// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ProviderAdapter: Fetches raw documents from a data source
//   - ProviderFactory: Creates adapters from configuration
//   - CleanerRegistry: Strips markup from raw payloads
//   - Translator: External translation gateway
//   - DedupStore: Atomic content-addressed admission control
//   - DocumentStore: Document persistence
//   - ProviderStateStore: Fetch cursor persistence
//   - DeadLetterStore: Terminal failure records
//   - EmbeddingQueue: Hand-off to the downstream indexing engine
//   - SearchEngine: Local relevance scoring (external capability)
//   - FederationClient: Peer-to-peer query forwarding and heartbeats
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, provider, or cleaner package
package driven
