package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Response is the envelope of every JSON body the gateway writes
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo carries a machine readable code next to the message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewPaginatedResponse wraps one page of data with its position in the full listing
func NewPaginatedResponse(data any, page, perPage, totalItems int) *Response {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	return &Response{Data: data, Meta: meta}
}

func write(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 with data
func RespondOK(c *gin.Context, data any) {
	write(c, http.StatusOK, &Response{Data: data})
}

// RespondCreated sends a 201 with the created resource
func RespondCreated(c *gin.Context, data any) {
	write(c, http.StatusCreated, &Response{Data: data})
}

// RespondWithPaginatedData sends one page of a listing
func RespondWithPaginatedData(c *gin.Context, statusCode int, data any, page, perPage, totalItems int) {
	write(c, statusCode, NewPaginatedResponse(data, page, perPage, totalItems))
}

// RespondWithError sends an error envelope
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	write(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondBadRequest sends a 400
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnauthorized sends a 401
func RespondUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", orDefault(message, "Unauthorized"))
}

// RespondForbidden sends a 403
func RespondForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", orDefault(message, "Forbidden"))
}

// RespondNotFound sends a 404
func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", orDefault(message, "Resource not found"))
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// sentinelErrors maps service sentinels onto fixed responses
var sentinelErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{shared.ErrMerchantIncomplete, http.StatusBadRequest, "MERCHANT_INCOMPLETE", "Merchant profile requires store name and document"},
	{shared.ErrInvalidSplit, http.StatusBadRequest, "INVALID_SPLIT", "Commission split is invalid"},
	{shared.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing signature"},
	{shared.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Forbidden"},
	{shared.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance"},
}

// RespondError maps a service error onto its HTTP status. Provider failures become 502
// without their details; anything unrecognised is logged and reported as 500.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validation   shared.ValidationError
		notFound     shared.NotFoundError
		invalidState shared.InvalidStateError
	)
	switch {
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
		return
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
		return
	case errors.As(err, &invalidState):
		RespondWithError(c, http.StatusConflict, "INVALID_STATE", invalidState.Error())
		return
	}

	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			RespondWithError(c, s.status, s.code, s.message)
			return
		}
	}

	if shared.IsGatewayError(err) {
		logger.Warn("Gateway call failed", "error", err)
		RespondWithError(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment provider request failed")
		return
	}
	logger.Error("Request failed", "error", err)
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
