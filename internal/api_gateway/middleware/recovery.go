package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/pix-settlement-ledger/internal/logger"
)

// Recovery turns a handler panic into the standard 500 envelope. Any open ledger
// transaction was already rolled back by ExecuteTx before the panic reached here.
func Recovery(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			log := logger.FromContext(c.Request.Context(), base)
			if userID, ok := GetUserID(c); ok {
				log = log.With("user_id", userID.String())
			}
			log.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
			)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}
