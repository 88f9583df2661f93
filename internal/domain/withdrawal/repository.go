package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines withdrawal persistence operations
type Repository interface {
	Create(ctx context.Context, w *Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error)

	// LockByID and LockByExternalID take a row lock and must run inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	LockByExternalID(ctx context.Context, externalID string) (*Withdrawal, error)

	// ClaimForDispatch moves a PENDING or PENDING_APPROVAL withdrawal to PROCESSING in a single
	// conditional update and returns it. It fails with InvalidStateError when no row qualifies.
	ClaimForDispatch(ctx context.Context, id uuid.UUID, reviewer uuid.UUID) (*Withdrawal, error)

	UpdateStatus(ctx context.Context, w *Withdrawal) error
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Withdrawal, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	WithTx(tx pgx.Tx) Repository
}
