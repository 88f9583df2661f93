package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/api_gateway/service"
	"github.com/pix-settlement-ledger/internal/logger"
)

// StatementHandler serves balances, ledger history and the activity feed
type StatementHandler struct {
	statementService service.StatementService
	logger           *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(logger *slog.Logger, statementService service.StatementService) *StatementHandler {
	return &StatementHandler{
		statementService: statementService,
		logger:           logger,
	}
}

// GetBalance returns the current balance of the user
func (h *StatementHandler) GetBalance(c *gin.Context) {
	userID, ok := h.ownUserID(c)
	if !ok {
		return
	}

	u, err := h.statementService.GetUser(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}

	RespondOK(c, mapBalanceToResponse(u))
}

// GetTransactions retrieves paginated ledger history for the user
func (h *StatementHandler) GetTransactions(c *gin.Context) {
	userID, ok := h.ownUserID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.statementService.GetTransactions(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}

	transactions := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		transactions = append(transactions, mapLedgerEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}

// GetActivity retrieves the projected activity feed for the user
func (h *StatementHandler) GetActivity(c *gin.Context) {
	userID, ok := h.ownUserID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	items, total, err := h.statementService.GetActivity(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, items, pagination.Page, pagination.PerPage, int(total))
}

// ownUserID parses :id and requires it to match the caller
func (h *StatementHandler) ownUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return uuid.Nil, false
	}
	caller, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, false
	}
	if caller != id {
		RespondForbidden(c, "")
		return uuid.Nil, false
	}
	return id, true
}
