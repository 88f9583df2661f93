// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a pgx.Tx with WithTx so that balance changes,
// status transitions and ledger rows commit in one unit of work.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const userColumns = `id, name, email, role, balance, withdraw_fee_percent::text, withdraw_fee_fixed::text, auto_withdraw, version, created_at, updated_at`

const (
	getUserByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	lockUserQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	updateUserBalanceQuery = `
		UPDATE users
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`

	getMerchantQuery = `SELECT user_id, store_name, document, email FROM merchants WHERE user_id = $1`
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u              user.User
		percent, fixed *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Balance,
		&percent,
		&fixed,
		&u.AutoWithdraw,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.FeePercent, err = parseOptionalDecimal(percent); err != nil {
		return nil, err
	}
	if u.FeeFixed, err = parseOptionalDecimal(fixed); err != nil {
		return nil, err
	}
	return &u, nil
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric column %q: %w", *s, err)
	}
	return &d, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.querier.QueryRow(ctx, getUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "user", Key: id.String()}
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// LockForUpdate obtains a pessimistic lock on the user row and returns its current state.
func (r *UserRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.querier.QueryRow(ctx, lockUserQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "user", Key: id.String()}
		}
		r.logger.Error("Failed to lock user for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock user for update: %w", err)
	}
	return u, nil
}

// UpdateBalance writes the balance of a user previously read with LockForUpdate.
func (r *UserRepository) UpdateBalance(ctx context.Context, u *user.User) error {
	result, err := r.querier.Exec(ctx, updateUserBalanceQuery, u.Balance, u.UpdatedAt, u.ID)
	if err != nil {
		r.logger.Error("Failed to update user balance", "id", u.ID.String(), "error", err)
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "user", Key: u.ID.String()}
	}
	return nil
}

// MerchantRepository implements user.MerchantRepository for PostgreSQL
type MerchantRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewMerchantRepository(logger *slog.Logger, db *persistence.PostgresDB) user.MerchantRepository {
	return &MerchantRepository{querier: db.Pool(), logger: logger}
}

// GetByUserID returns the merchant profile of a user, or nil when the user has none.
func (r *MerchantRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*user.Merchant, error) {
	var m user.Merchant
	err := r.querier.QueryRow(ctx, getMerchantQuery, userID).Scan(&m.UserID, &m.StoreName, &m.Document, &m.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get merchant", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	return &m, nil
}
