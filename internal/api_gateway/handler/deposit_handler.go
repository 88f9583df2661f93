package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// DepositHandler handles HTTP requests for PIX charges
type DepositHandler struct {
	depositService service.DepositService
	logger         *slog.Logger
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(logger *slog.Logger, depositService service.DepositService) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
		logger:         logger,
	}
}

// Create issues a PIX charge on behalf of the calling merchant
func (h *DepositHandler) Create(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	d, err := h.depositService.CreateDeposit(c.Request.Context(), service.CreateDepositInput{
		UserID:      userID,
		Amount:      req.Amount,
		ExternalID:  req.ExternalID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		RespondError(c, log, err)
		return
	}

	RespondCreated(c, mapDepositToResponse(d))
}

// Checkout issues a PIX charge for a product, split between seller and affiliate on payment.
// It is open to unauthenticated customers.
func (h *DepositHandler) Checkout(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		RespondBadRequest(c, "Invalid product ID")
		return
	}

	d, err := h.depositService.Checkout(c.Request.Context(), service.CheckoutInput{
		ProductID: productID,
		Payer: deposit.Payer{
			Name:     req.Payer.Name,
			Document: req.Payer.Document,
			Email:    req.Payer.Email,
		},
		RefCode:     req.Ref,
		ExternalID:  req.ExternalID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		RespondError(c, log, err)
		return
	}

	RespondCreated(c, mapDepositToResponse(d))
}

// GetByID returns a deposit owned by the caller. Deposits of other users read as not found.
func (h *DepositHandler) GetByID(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid deposit ID")
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	d, err := h.depositService.GetDeposit(c.Request.Context(), id)
	if err != nil {
		RespondError(c, log, err)
		return
	}
	if d.UserID != userID {
		RespondNotFound(c, "Deposit not found")
		return
	}

	RespondOK(c, mapDepositToResponse(d))
}
