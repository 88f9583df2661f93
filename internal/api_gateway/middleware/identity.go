package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
)

const (
	// UserIDHeader carries the caller identity established by the upstream auth proxy
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the caller id in the context
	UserIDKey = "user_id"
)

// UserLookup resolves the caller for role checks
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// RequireUser rejects requests without a valid X-User-ID header.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid "+UserIDHeader+" header")
			return
		}
		c.Set(UserIDKey, id)
		c.Next()
	}
}

// AdminOnly lets through callers whose user record has the ADMIN role. It must run after
// RequireUser.
func AdminOnly(logger *slog.Logger, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}

		u, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, shared.NotFoundError{}) {
				abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
				return
			}
			logger.Error("Failed to resolve caller role", "user_id", id.String(), "error", err)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
			return
		}
		if !u.IsAdmin() {
			logger.Warn("Admin route denied", "user_id", id.String(), "path", c.Request.URL.Path)
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
			return
		}
		c.Next()
	}
}

// GetUserID returns the caller id stored by RequireUser.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
