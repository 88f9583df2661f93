package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/activity"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/user"
)

// StatementServiceImpl implements the StatementService interface
type StatementServiceImpl struct {
	userRepo     user.Repository
	ledgerRepo   ledger.Repository
	activityRepo activity.Repository
	logger       *slog.Logger
}

// NewStatementService creates a new statement service
func NewStatementService(logger *slog.Logger, userRepo user.Repository, ledgerRepo ledger.Repository, activityRepo activity.Repository) StatementService {
	return &StatementServiceImpl{
		userRepo:     userRepo,
		ledgerRepo:   ledgerRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// GetUser retrieves a user by its ID
func (s *StatementServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetTransactions retrieves paginated ledger entries for a user
// Returns entries, total count, and any error
func (s *StatementServiceImpl) GetTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.ListByUserID(ctx, userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetActivity retrieves the paginated activity feed for a user. The feed is eventually
// consistent with the ledger.
func (s *StatementServiceImpl) GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.activityRepo.ListByUserID(ctx, userID.String(), perPage, offset)
	if err != nil {
		s.logger.Error("Failed to read activity feed", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}

	total, err := s.activityRepo.CountByUserID(ctx, userID.String())
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
