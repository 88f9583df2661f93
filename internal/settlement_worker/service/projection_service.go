package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pix-settlement-ledger/internal/domain/activity"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
)

// ActivityProjectionService writes ledger events to the activity store
type ActivityProjectionService struct {
	activityRepo activity.Repository
	logger       *slog.Logger
	now          func() time.Time
}

func NewActivityProjectionService(logger *slog.Logger, activityRepo activity.Repository) *ActivityProjectionService {
	return &ActivityProjectionService{
		activityRepo: activityRepo,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Project records the event once; redelivered events are acknowledged without a write.
func (s *ActivityProjectionService) Project(ctx context.Context, event *shared.LedgerEvent) error {
	log := logger.FromContext(ctx, s.logger).With(
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"user_id", event.UserID.String(),
	)

	entry := activity.FromEvent(event)
	entry.ProjectedAt = s.now()

	created, err := s.activityRepo.Record(ctx, entry)
	if err != nil {
		log.Error("Failed to project ledger event", "error", err)
		return fmt.Errorf("failed to project event %s: %w", event.EventID.String(), err)
	}
	if !created {
		log.Info("Ledger event already projected")
		return nil
	}

	log.Debug("Ledger event projected")
	return nil
}
