package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

const (
	// KeyClubSignatureHeader carries the hex HMAC-SHA256 of the KeyClub body
	KeyClubSignatureHeader = "X-Signature"
	// XFlowSignatureHeader carries the hex HMAC-SHA256 of the XFlow body
	XFlowSignatureHeader = "X-XFlow-Signature"

	maxWebhookBody = 1 << 20
)

// WebhookHandler receives provider callbacks. The raw body is kept intact for signature checks.
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// KeyClub handles POST /webhooks/keyclub
func (h *WebhookHandler) KeyClub(c *gin.Context) {
	h.handle(c, shared.ProviderKeyClub, KeyClubSignatureHeader)
}

// XFlow handles POST /webhooks/xflow?eid=<externalId>
func (h *WebhookHandler) XFlow(c *gin.Context) {
	h.handle(c, shared.ProviderXFlow, XFlowSignatureHeader)
}

func (h *WebhookHandler) handle(c *gin.Context, provider shared.Provider, signatureHeader string) {
	log := logger.FromContext(c.Request.Context(), h.logger).With("provider", string(provider))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		log.Warn("Failed to read webhook body", "error", err)
		RespondBadRequest(c, "Unreadable body")
		return
	}
	if len(body) > maxWebhookBody {
		RespondWithError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook body too large")
		return
	}

	result, err := h.webhookService.Handle(c.Request.Context(), service.WebhookDelivery{
		Provider:   provider,
		RawBody:    body,
		Signature:  c.GetHeader(signatureHeader),
		ExternalID: c.Query("eid"),
	})
	if err != nil {
		RespondError(c, log, err)
		return
	}

	log.Info("Webhook processed",
		"entity", result.Entity,
		"id", result.ID,
		"status", result.Status,
		"duplicate", result.Duplicate,
	)
	RespondOK(c, result)
}
