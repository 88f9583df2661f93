package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/messaging/producers"
	"github.com/pix-settlement-ledger/internal/settlement_worker/service"
)

// LedgerEventHandler handles ledger events consumed from Kafka
type LedgerEventHandler struct {
	projection service.ProjectionService
	producer   producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewLedgerEventHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewLedgerEventHandler(
	logger *slog.Logger,
	projection service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *LedgerEventHandler {
	return &LedgerEventHandler{
		projection: projection,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMessage projects one event. Undecodable events are parked in the DLQ and
// acknowledged; projection errors are returned so the consumer retries.
func (h *LedgerEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeLedgerEvent(value)
	if err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	if event.CorrelationID != "" && logger.CorrelationID(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	log := logger.FromContext(ctx, h.logger)

	log.Debug("Received ledger event",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"user_id", event.UserID.String(),
	)

	if err := h.projection.Project(ctx, event); err != nil {
		return fmt.Errorf("projecting event %s failed: %w", event.EventID.String(), err)
	}
	return nil
}

func (h *LedgerEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	log := logger.FromContext(ctx, h.logger)
	reason := "undecodable ledger event: " + cause.Error()
	log.Error("Failed to decode ledger event", "error", cause, "message_key", string(key))

	if h.producer == nil {
		return fmt.Errorf("decode ledger event: %w", cause)
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		log.Error("Failed to publish message to DLQ", "dlq_error", err, "message_key", string(key))
		return fmt.Errorf("decode ledger event: %w", cause)
	}
	return nil
}

var errIncompleteEvent = errors.New("event is missing id, type or user")

func decodeLedgerEvent(value []byte) (*shared.LedgerEvent, error) {
	var event shared.LedgerEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	if event.EventID == uuid.Nil || event.UserID == uuid.Nil || !knownEventType(event.Type) {
		return nil, errIncompleteEvent
	}
	return &event, nil
}

func knownEventType(t shared.EventType) bool {
	switch t {
	case shared.EventBalanceUpdated,
		shared.EventDepositConfirmed,
		shared.EventDepositFailed,
		shared.EventDepositRetained,
		shared.EventWithdrawalProcessed:
		return true
	}
	return false
}
