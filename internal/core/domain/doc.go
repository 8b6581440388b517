// Package domain defines the core business entities for the retriever
// mesh.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Persisted content with provenance and version
//   - RawDocument: Opaque content from a provider adapter
//   - Provider: A configured external data source
//   - Query: A federated search request in flight
//   - ServerNode: A mesh server with liveness state
//   - ServerSummary: The deduplicated result set for one query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
