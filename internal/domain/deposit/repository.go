package deposit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines deposit persistence operations
type Repository interface {
	Create(ctx context.Context, d *Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Deposit, error)

	// LockByID and LockByCorrelation take a row lock and must run inside a transaction.
	// LockByCorrelation matches either the external id or the provider transaction id.
	LockByID(ctx context.Context, id uuid.UUID) (*Deposit, error)
	LockByCorrelation(ctx context.Context, key string) (*Deposit, error)

	// CorrelationTaken reports whether key is already some deposit's external id or
	// provider transaction id.
	CorrelationTaken(ctx context.Context, key string) (bool, error)

	UpdateStatus(ctx context.Context, d *Deposit) error
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Deposit, error)
	WithTx(tx pgx.Tx) Repository
}
