package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/messaging/producers"
)

// EventPublisher publishes an outbox message and marks it processed
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// ErrUndecodablePayload marks outbox rows that can never be published
type ErrUndecodablePayload struct {
	OutboxID int64
	Err      error
}

func (e ErrUndecodablePayload) Error() string {
	return fmt.Sprintf("outbox message %d has an undecodable payload: %v", e.OutboxID, e.Err)
}

func (e ErrUndecodablePayload) Unwrap() error {
	return e.Err
}

// KafkaEventPublisher forwards outbox rows to the ledger events topic keyed by user id,
// so one user's events keep their order.
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// Publish sends the stored payload unchanged. A row is marked PROCESSED only after the
// broker acknowledged it, so a crash in between republishes; consumers dedupe on event id.
func (p *KafkaEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to decode ledger event from outbox payload", "outbox_id", message.ID, "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message", "outbox_id", message.ID, "error", updateErr)
		}
		return ErrUndecodablePayload{OutboxID: message.ID, Err: err}
	}

	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	log := logger.FromContext(ctx, p.logger).With(
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"event_type", string(message.EventType),
	)

	if err := p.producer.Publish(ctx, message.PartitionKey(), message.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		log.Error("Event published but outbox status update failed", "error", err)
		return fmt.Errorf("event for outbox %d published, but marking it PROCESSED failed: %w", message.ID, err)
	}

	log.Info("Ledger event published")
	return nil
}
