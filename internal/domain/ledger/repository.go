package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Repository manages ledger entry persistence with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListByExternalID returns every entry sharing the correlation key, oldest first.
	ListByExternalID(ctx context.Context, externalID string) ([]*Entry, error)

	// Update persists amount, status and metadata of an existing entry.
	Update(ctx context.Context, entry *Entry) error

	// UpdateStatusByExternalID moves the entries of the given type from one status to another
	// and returns how many rows changed.
	UpdateStatusByExternalID(ctx context.Context, externalID string, typ shared.TransactionType, from, to shared.TransactionStatus) (int64, error)

	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}
