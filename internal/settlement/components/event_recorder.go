package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// EventRecorderImpl writes ledger events to the transactional outbox.
type EventRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewEventRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.EventRecorder {
	return &EventRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record stores each event in the outbox within tx. Events inherit the request
// correlation id when they carry none.
func (r *EventRecorderImpl) Record(ctx context.Context, tx pgx.Tx, events ...*shared.LedgerEvent) error {
	log := logger.FromContext(ctx, r.logger)
	outboxRepoTx := r.outboxRepo.WithTx(tx)
	correlationID := logger.CorrelationID(ctx)

	for _, event := range events {
		if event.CorrelationID == "" {
			event.CorrelationID = correlationID
		}

		message, err := outbox.NewMessage(event)
		if err != nil {
			log.Error("Failed to marshal ledger event", "event_id", event.EventID.String(), "error", err)
			return fmt.Errorf("failed to create outbox message payload for event %s: %w", event.EventID.String(), err)
		}

		if err := outboxRepoTx.Create(ctx, message); err != nil {
			log.Error("Failed to create outbox message",
				"event_id", event.EventID.String(),
				"event_type", string(event.Type),
				"user_id", event.UserID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID.String(), err)
		}

		log.Debug("Ledger event recorded",
			"event_id", event.EventID.String(),
			"event_type", string(event.Type),
			"outbox_id", message.ID,
		)
	}
	return nil
}
