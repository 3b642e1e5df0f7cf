package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/core/apperror"
	"pharmledger/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check for errors
		if len(c.Errors) == 0 {
			return
		}

		// Get last error
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		// Try to extract AppError
		if appErr, ok := apperror.AsAppError(err); ok {
			// Log internal error if present
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}

			// Settle the idempotency key with the exact response we return (best-effort).
			settleIdempotency(c, appErr.HTTPStatus, body)

			c.JSON(appErr.HTTPStatus, body)
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString("request_id"),
			},
		}

		settleIdempotency(c, http.StatusInternalServerError, body)

		c.JSON(http.StatusInternalServerError, body)
	}
}

// settleIdempotency records a client error for replay. Server errors
// (TRANSACTION_FAILURE, INTERNAL and other 5xx) release the key instead so
// the same request can be retried.
func settleIdempotency(c *gin.Context, status int, body any) {
	store, key, userID, ok := idempotencyFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if status >= http.StatusInternalServerError {
		if err := store.ReleaseKey(ctx, key, userID); err != nil {
			logger.Warn(ctx, "failed to release idempotency key", "key", key, "error", err)
		}
		return
	}
	if err := store.FailKey(ctx, key, userID, status, "application/json", body); err != nil {
		logger.Warn(ctx, "failed to store idempotent error response", "key", key, "error", err)
	}
}
