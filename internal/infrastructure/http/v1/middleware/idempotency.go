package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/core/apperror"
	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/idempotency"
	"pharmledger/pkg/logger"
)

const HeaderIdempotencyKey = "Idempotency-Key"

const (
	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB
	maxIdempotencyKeyLength = 255

	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyUser  = "idempotency_user"
	ctxIdempotencyStore = "idempotency_store"
)

// Idempotency replays the stored response when a POST is repeated with the
// same Idempotency-Key. Requests without the header pass through.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to mutating methods
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		// Get idempotency key
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			_ = c.Error(apperror.NewFieldValidation("Idempotency-Key", "idempotency key is too long"))
			c.Abort()
			return
		}

		// Hash request body
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("unreadable request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		// Keys are scoped to the user; anonymous callers share id.Nil()
		ctx := c.Request.Context()
		userID := appctx.GetUserID(ctx)

		// Operation name from path
		operation := c.Request.Method + " " + c.FullPath()

		// Try to acquire key
		replay, err := store.AcquireKey(ctx, key, userID, operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if !apperror.IsAppError(err) {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		// Return cached response if exists
		if replay != nil {
			logger.Debug(ctx, "idempotent replay", "key", key, "status", replay.StatusCode)
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		// Store key for completion
		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyUser, userID)
		c.Set(ctxIdempotencyStore, store)
		c.Next()
	}
}

// CompleteIdempotency stores a successful response under the request's key.
func CompleteIdempotency(c *gin.Context, status int, contentType string, response any) {
	store, key, userID, ok := idempotencyFromContext(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, userID, status, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "failed to store idempotent response", "key", key, "error", err)
	}
}

func idempotencyFromContext(c *gin.Context) (idempotency.Store, string, id.ID, bool) {
	key := c.GetString(ctxIdempotencyKey)
	if key == "" {
		return nil, "", id.Nil(), false
	}
	v, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return nil, "", id.Nil(), false
	}
	store, ok := v.(idempotency.Store)
	u, _ := c.Get(ctxIdempotencyUser)
	userID, _ := u.(id.ID)
	return store, key, userID, ok && store != nil
}
