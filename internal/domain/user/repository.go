package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines user persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// LockForUpdate acquires a row lock on the user; it must run inside a transaction.
	// Every balance change goes through a locked read first.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*User, error)

	// UpdateBalance persists the balance of a user previously read with LockForUpdate.
	UpdateBalance(ctx context.Context, u *User) error
	WithTx(tx pgx.Tx) Repository
}

// MerchantRepository reads merchant profiles
type MerchantRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Merchant, error)
}
