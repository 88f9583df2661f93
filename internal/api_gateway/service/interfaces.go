package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/activity"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/user"
)

// StatementService defines the read side of the ledger exposed over HTTP
type StatementService interface {
	// GetUser retrieves a user with its current balance
	// Returns a NotFoundError if the user doesn't exist
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)

	// GetTransactions retrieves a page of ledger entries for a user, newest first
	// Returns entries, total count of all entries, and any error
	GetTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// GetActivity retrieves a page of the projected activity feed for a user
	GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error)
}
