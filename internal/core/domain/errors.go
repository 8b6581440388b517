package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists. For dedup
	// admission this is the expected outcome for duplicate content,
	// not a failure.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or cleaner type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrFetchInProgress indicates a fetch for the provider is
	// already running. Single-flight suppresses the new one.
	ErrFetchInProgress = errors.New("fetch in progress")

	// Provider Errors.

	// ErrFetch indicates a transient source failure. Retryable on
	// the next scheduled fetch.
	ErrFetch = errors.New("fetch failed")

	// ErrAuth indicates the provider's credentials are rejected.
	// Fatal: surfaced to the operator, never retried automatically.
	ErrAuth = errors.New("authentication failed")

	// Pipeline Errors.

	// ErrTranslation indicates the translation gateway failed.
	// Retried with backoff; dead-lettered after the cap.
	ErrTranslation = errors.New("translation failed")

	// ErrStore indicates the persistent store rejected an operation.
	// Fatal for the affected document only.
	ErrStore = errors.New("store failure")

	// Federation Errors.

	// ErrNeighborUnreachable indicates a neighbor call failed or
	// timed out. Degrades the summary, never fails the query.
	ErrNeighborUnreachable = errors.New("neighbor unreachable")

	// ErrQueryTranslation indicates the incoming query text could
	// not be translated. The only error fatal to a whole query.
	ErrQueryTranslation = errors.New("query translation failed")

	// ErrDepthExceeded indicates a forward was refused because the
	// hop budget is exhausted or every neighbor was already visited.
	// Refusal is silent apart from a log line.
	ErrDepthExceeded = errors.New("propagation depth exceeded")
)
