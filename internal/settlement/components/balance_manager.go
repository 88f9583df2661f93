// Package components holds the building blocks the settlement services run inside a
// unit of work: balance mutation, outbox event recording, fee resolution and webhook
// signature verification.
package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// BalanceManagerImpl implements the BalanceManager interface
type BalanceManagerImpl struct {
	userRepo user.Repository
	logger   *slog.Logger
}

// NewBalanceManager creates a new BalanceManagerImpl
func NewBalanceManager(userRepo user.Repository, logger *slog.Logger) service.BalanceManager {
	return &BalanceManagerImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Credit locks the user and adds amount to the balance.
func (m *BalanceManagerImpl) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error) {
	return m.apply(ctx, tx, userID, amount, "credit", (*user.User).Credit)
}

// Reserve locks the user and debits amount. The balance check and the debit happen under
// the same row lock.
func (m *BalanceManagerImpl) Reserve(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error) {
	return m.apply(ctx, tx, userID, amount, "reserve", (*user.User).Debit)
}

func (m *BalanceManagerImpl) apply(
	ctx context.Context,
	tx pgx.Tx,
	userID uuid.UUID,
	amount int64,
	op string,
	mutate func(*user.User, int64) error,
) (*user.User, error) {
	log := logger.FromContext(ctx, m.logger)
	userRepoTx := m.userRepo.WithTx(tx)

	locked, err := userRepoTx.LockForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{Entity: "user"}) {
			log.Warn("User not found for lock", "user_id", userID.String())
			return nil, err
		}
		log.Error("Failed to lock user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock user %s: %w", userID.String(), err)
	}

	before := locked.Balance
	if err := mutate(locked, amount); err != nil {
		log.Warn("Balance operation refused",
			"op", op,
			"user_id", userID.String(),
			"balance", before,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	if err := userRepoTx.UpdateBalance(ctx, locked); err != nil {
		log.Error("Failed to persist balance", "op", op, "user_id", userID.String(), "error", err)
		return nil, err
	}

	log.Info("Balance updated",
		"op", op,
		"user_id", userID.String(),
		"amount", amount,
		"old_balance", before,
		"new_balance", locked.Balance,
	)
	return locked, nil
}
