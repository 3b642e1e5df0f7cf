package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/idempotency"
)

type idempotencyKey struct {
	userID id.ID
	key    string
}

type idempotencyRecord struct {
	operation   string
	requestHash string
	done        bool
	replay      idempotency.Replay
}

// IdempotencyStore keeps Idempotency-Key results for the life of the store.
type IdempotencyStore struct {
	store *Store
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

func (r *IdempotencyStore) AcquireKey(ctx context.Context, key string, userID id.ID, operation, requestHash string) (*idempotency.Replay, error) {
	var replay *idempotency.Replay
	k := idempotencyKey{userID: userID, key: key}
	err := r.store.write(ctx, func(st *state) error {
		rec, ok := st.idempotency[k]
		if !ok {
			st.idempotency[k] = idempotencyRecord{operation: operation, requestHash: requestHash}
			return nil
		}
		if rec.operation != operation || rec.requestHash != requestHash {
			return apperror.NewConflict("idempotency key was used for a different request").
				WithDetail("idempotency_key", key)
		}
		if !rec.done {
			return apperror.NewConflict("request with this idempotency key is in progress").
				WithDetail("idempotency_key", key)
		}
		stored := rec.replay
		replay = &stored
		return nil
	})
	return replay, err
}

func (r *IdempotencyStore) CompleteKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error {
	return r.finish(ctx, idempotencyKey{userID: userID, key: key}, statusCode, contentType, response)
}

func (r *IdempotencyStore) FailKey(ctx context.Context, key string, userID id.ID, statusCode int, contentType string, response any) error {
	return r.finish(ctx, idempotencyKey{userID: userID, key: key}, statusCode, contentType, response)
}

// ReleaseKey forgets a pending key; finished keys are left alone.
func (r *IdempotencyStore) ReleaseKey(ctx context.Context, key string, userID id.ID) error {
	k := idempotencyKey{userID: userID, key: key}
	return r.store.write(ctx, func(st *state) error {
		if rec, ok := st.idempotency[k]; ok && !rec.done {
			delete(st.idempotency, k)
		}
		return nil
	})
}

func (r *IdempotencyStore) finish(ctx context.Context, k idempotencyKey, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}
	return r.store.write(ctx, func(st *state) error {
		rec, ok := st.idempotency[k]
		if !ok {
			return nil
		}
		rec.done = true
		rec.replay = idempotency.Replay{StatusCode: statusCode, ContentType: contentType, Body: body}
		st.idempotency[k] = rec
		return nil
	})
}
