// Package services implements the core application logic: the document
// pipeline, fetch orchestration and scheduling, neighbor liveness
// tracking, and the federated query router. Services depend only on
// the port interfaces; adapters are injected at startup.
package services
