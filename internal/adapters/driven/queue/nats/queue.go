// Package nats provides an embedding queue adapter backed by NATS
// JetStream. Admitted documents are published for the downstream
// embedding/indexing engine to consume.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.EmbeddingQueue = (*Queue)(nil)

// Default configuration values.
const (
	DefaultSubject = "retriever.embedding"
	DefaultStream  = "RETRIEVER"
)

// Config holds configuration for the embedding queue.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// Subject is the publish subject.
	Subject string

	// Stream is the JetStream stream expected to capture Subject.
	// Created if absent.
	Stream string
}

// Queue publishes embedding payloads to JetStream.
type Queue struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// New connects to NATS and ensures the stream exists.
func New(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	return &Queue{
		nc:      nc,
		js:      js,
		subject: cfg.Subject,
	}, nil
}

// Publish enqueues a payload. The message id is the content signature,
// so JetStream's duplicate window suppresses redeliveries of the same
// content and the downstream consumer stays idempotent by signature.
func (q *Queue) Publish(ctx context.Context, payload driven.EmbeddingPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = q.js.Publish(ctx, q.subject, data,
		jetstream.WithMsgID(payload.Signature))
	if err != nil {
		return fmt.Errorf("publish to %s: %w", q.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (q *Queue) Close() error {
	return q.nc.Drain()
}
