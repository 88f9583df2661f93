package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Poller drains pending outbox messages in creation order
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
	retention        time.Duration
	purgeInterval    time.Duration
	now              func() time.Time
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		retention:        cfg.Retention,
		purgeInterval:    cfg.PurgeInterval,
		now:              time.Now,
	}
}

// Start begins polling until context is canceled. With a retention configured it also
// deletes published rows older than the retention window.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"retention", p.retention.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	var purge <-chan time.Time
	if p.retention > 0 && p.purgeInterval > 0 {
		purgeTicker := time.NewTicker(p.purgeInterval)
		defer purgeTicker.Stop()
		purge = purgeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		case <-purge:
			p.purgeProcessed(ctx)
		}
	}
}

func (p *Poller) purgeProcessed(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.outboxRepo.PurgeProcessed(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to purge processed outbox messages", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("Purged processed outbox messages", "deleted", deleted, "cutoff", cutoff)
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	// a user's later events wait for the next tick once one of theirs fails
	blocked := make(map[uuid.UUID]bool)

	for _, msg := range messages {
		if blocked[msg.UserID] {
			continue
		}
		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			continue
		}

		var undecodable ErrUndecodablePayload
		if errors.As(err, &undecodable) {
			// already parked by the publisher
			continue
		}

		blocked[msg.UserID] = true
		p.logger.Error("Failed to publish outbox message",
			"outbox_id", msg.ID,
			"event_id", msg.EventID.String(),
			"current_attempts", msg.Attempts,
			"error", err,
		)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
			continue
		}

		if msg.ExhaustedAfterFailure(p.maxRetryAttempts) {
			p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID,
				"event_id", msg.EventID.String(),
				"attempts_made", msg.Attempts+1,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", errUpdate)
			}
		}
	}
	return nil
}
