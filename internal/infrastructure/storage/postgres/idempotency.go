package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/idempotency"
)

// IdempotencyStatus represents the state of a keyed request.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key blocks retries before it is reclaimed.
const staleAfter = time.Minute

// IdempotencyStore persists Idempotency-Key results in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, now: time.Now}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// AcquireKey claims key for the request on behalf of userID.
// Returns:
//   - (nil, nil) if the caller now owns the key
//   - (replay, nil) if the request already finished (success or client error)
//   - (nil, Conflict) if another request holds the key or it was used for a different payload
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key string, userID id.ID, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now().UTC()
	q := s.txManager.GetQuerier(ctx)

	// Try to insert; an existing row for the same user and key wins.
	tag, err := q.Exec(ctx, `
		INSERT INTO sys_idempotency (user_id, idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
	`, userID, key, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	// Key was just created by us
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var (
		storedOp    string
		storedHash  string
		status      IdempotencyStatus
		body        []byte
		statusCode  *int
		contentType *string
		updatedAt   time.Time
	)
	err = q.QueryRow(ctx, `
		SELECT operation, request_hash, status, response, response_status, response_content_type, updated_at
		FROM sys_idempotency WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key).Scan(&storedOp, &storedHash, &status, &body, &statusCode, &contentType, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Released or cleaned up between the insert and the read.
		return s.AcquireKey(ctx, key, userID, operation, requestHash)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	// Key exists: protect against reuse for a different request.
	if storedOp != operation || storedHash != requestHash {
		return nil, apperror.NewConflict("idempotency key was used for a different request").
			WithDetail("idempotency_key", key)
	}

	switch status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		replay := &idempotency.Replay{StatusCode: 200, ContentType: "application/json", Body: body}
		// Older records may lack status or content type.
		if statusCode != nil && *statusCode != 0 {
			replay.StatusCode = *statusCode
		}
		if contentType != nil && *contentType != "" {
			replay.ContentType = *contentType
		}
		return replay, nil
	}

	// Check if stale (likely a crashed request)
	if now.Sub(updatedAt) > staleAfter {
		if _, err := q.Exec(ctx, `
			UPDATE sys_idempotency SET updated_at = $1
			WHERE user_id = $2 AND idempotency_key = $3 AND status = $4
		`, now, userID, key, IdempotencyStatusPending); err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		return nil, nil
	}
	// Key is actively being processed
	return nil, apperror.NewConflict("request with this idempotency key is in progress").
		WithDetail("idempotency_key", key)
}

// CompleteKey marks an idempotency key as completed with HTTP response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, userID, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey marks an idempotency key as failed with a client error response.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, userID, IdempotencyStatusFailed, statusCode, contentType, response)
}

// ReleaseKey deletes a pending key so the next attempt runs the request again.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string, userID id.ID) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency
		WHERE user_id = $1 AND idempotency_key = $2 AND status = $3
	`, userID, key, IdempotencyStatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, userID id.ID, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE user_id = $6 AND idempotency_key = $7
	`, status, body, statusCode, contentType, s.now().UTC(), userID, key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
