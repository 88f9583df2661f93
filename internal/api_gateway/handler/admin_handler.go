package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// AdminHandler exposes the manual approval workflow. Routes are mounted behind
// middleware.AdminOnly; the service re-checks the role.
type AdminHandler struct {
	approvalService service.ApprovalService
	logger          *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, approvalService service.ApprovalService) *AdminHandler {
	return &AdminHandler{
		approvalService: approvalService,
		logger:          logger,
	}
}

// ListWithdrawals returns the withdrawals in the requested status, PENDING_APPROVAL by default
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var params ListWithdrawalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	offset := (params.Page - 1) * params.PerPage
	items, total, err := h.approvalService.ListWithdrawals(c.Request.Context(), withdrawal.Status(params.Status), params.PerPage, offset)
	if err != nil {
		RespondError(c, log, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapWithdrawalsToResponse(items), params.Page, params.PerPage, int(total))
}

// Approve dispatches a pending withdrawal to the provider
func (h *AdminHandler) Approve(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, adminID, ok := h.target(c, "Invalid withdrawal ID")
	if !ok {
		return
	}

	w, err := h.approvalService.ApproveWithdrawal(c.Request.Context(), id, adminID)
	if err != nil {
		RespondError(c, log, err)
		return
	}

	log.Info("Withdrawal approved", "withdrawal_id", id.String(), "status", string(w.Status))
	RespondOK(c, mapWithdrawalToResponse(w))
}

// Reject refunds a pending withdrawal. The body is optional.
func (h *AdminHandler) Reject(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, adminID, ok := h.target(c, "Invalid withdrawal ID")
	if !ok {
		return
	}

	var req RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.approvalService.RejectWithdrawal(c.Request.Context(), id, req.Reason, adminID)
	if err != nil {
		RespondError(c, log, err)
		return
	}

	log.Info("Withdrawal rejected", "withdrawal_id", id.String(), "reason", w.FailureReason)
	RespondOK(c, mapWithdrawalToResponse(w))
}

// ResolveDeposit confirms or fails a deposit the provider retained
func (h *AdminHandler) ResolveDeposit(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, adminID, ok := h.target(c, "Invalid deposit ID")
	if !ok {
		return
	}

	var req ResolveDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	d, err := h.approvalService.ResolveRetainedDeposit(c.Request.Context(), id, req.Action == "confirm", adminID)
	if err != nil {
		RespondError(c, log, err)
		return
	}

	log.Info("Retained deposit resolved", "deposit_id", id.String(), "status", string(d.Status))
	RespondOK(c, mapDepositToResponse(d))
}

func (h *AdminHandler) target(c *gin.Context, invalidMessage string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, invalidMessage)
		return uuid.Nil, uuid.Nil, false
	}
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, uuid.Nil, false
	}
	return id, adminID, true
}
