package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pix-settlement-ledger/internal/api_gateway/handler"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
)

// handlers groups the HTTP handlers mounted by setupRouter
type handlers struct {
	deposits    *handler.DepositHandler
	withdrawals *handler.WithdrawalHandler
	webhooks    *handler.WebhookHandler
	admin       *handler.AdminHandler
	statements  *handler.StatementHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	users middleware.UserLookup,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	// Provider callbacks, authenticated by signature
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/keyclub", h.webhooks.KeyClub)
		webhooks.POST("/xflow", h.webhooks.XFlow)
	}

	v1 := r.Group("/api/v1")
	{
		// Customer checkout needs no account
		v1.POST("/checkout", h.deposits.Checkout)

		authed := v1.Group("", middleware.RequireUser())

		deposits := authed.Group("/deposits")
		{
			deposits.POST("", h.deposits.Create)
			deposits.GET("/:id", h.deposits.GetByID)
		}

		withdrawals := authed.Group("/withdrawals")
		{
			withdrawals.POST("", h.withdrawals.Create)
			withdrawals.GET("/:id", h.withdrawals.GetByID)
		}

		usersGroup := authed.Group("/users/:id")
		{
			usersGroup.GET("/balance", h.statements.GetBalance)
			usersGroup.GET("/transactions", h.statements.GetTransactions)
			usersGroup.GET("/activity", h.statements.GetActivity)
		}

		admin := authed.Group("/admin", middleware.AdminOnly(logger, users))
		{
			admin.GET("/withdrawals", h.admin.ListWithdrawals)
			admin.POST("/withdrawals/:id/approve", h.admin.Approve)
			admin.POST("/withdrawals/:id/reject", h.admin.Reject)
			admin.POST("/deposits/:id/resolve", h.admin.ResolveDeposit)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
