// Package idempotency defines the contract for Idempotency-Key storage.
package idempotency

import (
	"context"

	"pharmledger/internal/core/id"
)

// Replay is a stored response returned for a repeated key.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store claims keys and records the response each key produced.
// Keys are scoped per user: the same key sent by two users names two records.
// Anonymous callers use id.Nil().
type Store interface {
	// AcquireKey returns (nil, nil) when the caller now owns key, or the
	// stored response when the request already finished.
	AcquireKey(ctx context.Context, key string, userID id.ID, operation, requestHash string) (*Replay, error)
	// CompleteKey stores a successful response for replay.
	CompleteKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error
	// FailKey stores a final client error response for replay.
	FailKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error
	// ReleaseKey drops a pending claim so the request can be retried.
	// Used for transient server failures that must not be replayed.
	ReleaseKey(ctx context.Context, key string, userID id.ID) error
}
