package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// WithdrawalHandler handles HTTP requests for PIX payouts
type WithdrawalHandler struct {
	withdrawalService service.WithdrawalService
	logger            *slog.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(logger *slog.Logger, withdrawalService service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// Create reserves the gross amount and queues or dispatches the payout. A provider
// failure during auto dispatch is reported as 502 after the reservation is reversed.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.withdrawalService.CreateWithdrawal(c.Request.Context(), service.CreateWithdrawalInput{
		UserID:      userID,
		Amount:      req.Amount,
		PixKey:      req.PixKey,
		KeyType:     withdrawal.KeyType(req.KeyType),
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, log, err)
		return
	}

	RespondCreated(c, mapWithdrawalToResponse(w))
}

// GetByID returns a withdrawal owned by the caller
func (h *WithdrawalHandler) GetByID(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid withdrawal ID")
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	w, err := h.withdrawalService.GetWithdrawal(c.Request.Context(), id)
	if err != nil {
		RespondError(c, log, err)
		return
	}
	if w.UserID != userID {
		RespondNotFound(c, "Withdrawal not found")
		return
	}

	RespondOK(c, mapWithdrawalToResponse(w))
}
