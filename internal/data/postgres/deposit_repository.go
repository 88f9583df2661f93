package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

const depositColumns = `id, external_id, user_id, merchant_id, product_id, provider, provider_transaction_id,
	amount, net_amount, status, payer_name, payer_document, payer_email, qr_code, resolved_by,
	created_at, updated_at, settled_at`

const (
	createDepositQuery = `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	getDepositByIDQuery = `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	lockDepositByIDQuery = `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1 FOR UPDATE`

	lockDepositByCorrelationQuery = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE external_id = $1 OR (provider_transaction_id <> '' AND provider_transaction_id = $1)
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	correlationTakenQuery = `
		SELECT EXISTS (
			SELECT 1 FROM deposits
			WHERE external_id = $1 OR (provider_transaction_id <> '' AND provider_transaction_id = $1)
		)
	`

	updateDepositStatusQuery = `
		UPDATE deposits
		SET status = $1, resolved_by = $2, updated_at = $3, settled_at = $4
		WHERE id = $5
	`

	listDepositsByStatusQuery = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
)

// DepositRepository implements the deposit.Repository interface for PostgreSQL
type DepositRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDepositRepository creates a new PostgreSQL deposit repository
func NewDepositRepository(logger *slog.Logger, db *persistence.PostgresDB) deposit.Repository {
	return &DepositRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DepositRepository) WithTx(tx pgx.Tx) deposit.Repository {
	return &DepositRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanDeposit(row pgx.Row) (*deposit.Deposit, error) {
	var d deposit.Deposit
	err := row.Scan(
		&d.ID,
		&d.ExternalID,
		&d.UserID,
		&d.MerchantID,
		&d.ProductID,
		&d.Provider,
		&d.ProviderTransactionID,
		&d.Amount,
		&d.NetAmount,
		&d.Status,
		&d.PayerName,
		&d.PayerDocument,
		&d.PayerEmail,
		&d.QRCode,
		&d.ResolvedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new deposit
func (r *DepositRepository) Create(ctx context.Context, d *deposit.Deposit) error {
	_, err := r.querier.Exec(ctx, createDepositQuery,
		d.ID,
		d.ExternalID,
		d.UserID,
		d.MerchantID,
		d.ProductID,
		d.Provider,
		d.ProviderTransactionID,
		d.Amount,
		d.NetAmount,
		d.Status,
		d.PayerName,
		d.PayerDocument,
		d.PayerEmail,
		d.QRCode,
		d.ResolvedBy,
		d.CreatedAt,
		d.UpdatedAt,
		d.SettledAt,
	)
	if err != nil {
		r.logger.Error("Failed to create deposit",
			"external_id", d.ExternalID,
			"error", err,
		)
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

// GetByID retrieves a deposit by id
func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	d, err := scanDeposit(r.querier.QueryRow(ctx, getDepositByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "deposit", Key: id.String()}
		}
		r.logger.Error("Failed to get deposit", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return d, nil
}

// LockByID locks the deposit row for the rest of the transaction.
func (r *DepositRepository) LockByID(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	d, err := scanDeposit(r.querier.QueryRow(ctx, lockDepositByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "deposit", Key: id.String()}
		}
		r.logger.Error("Failed to lock deposit", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}
	return d, nil
}

// LockByCorrelation locks the deposit whose external id or provider transaction id equals key.
func (r *DepositRepository) LockByCorrelation(ctx context.Context, key string) (*deposit.Deposit, error) {
	d, err := scanDeposit(r.querier.QueryRow(ctx, lockDepositByCorrelationQuery, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "deposit", Key: key}
		}
		r.logger.Error("Failed to lock deposit by correlation key", "key", key, "error", err)
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}
	return d, nil
}

// CorrelationTaken reports whether key already correlates to a deposit.
func (r *DepositRepository) CorrelationTaken(ctx context.Context, key string) (bool, error) {
	var taken bool
	if err := r.querier.QueryRow(ctx, correlationTakenQuery, key).Scan(&taken); err != nil {
		r.logger.Error("Failed to check deposit correlation key", "key", key, "error", err)
		return false, fmt.Errorf("failed to check deposit correlation key: %w", err)
	}
	return taken, nil
}

// UpdateStatus persists the status and settlement fields of a deposit.
func (r *DepositRepository) UpdateStatus(ctx context.Context, d *deposit.Deposit) error {
	result, err := r.querier.Exec(ctx, updateDepositStatusQuery,
		d.Status,
		d.ResolvedBy,
		d.UpdatedAt,
		d.SettledAt,
		d.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update deposit status",
			"id", d.ID.String(),
			"status", string(d.Status),
			"error", err,
		)
		return fmt.Errorf("failed to update deposit status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "deposit", Key: d.ID.String()}
	}
	return nil
}

// ListByStatus returns deposits in status, oldest first.
func (r *DepositRepository) ListByStatus(ctx context.Context, status deposit.Status, limit, offset int) ([]*deposit.Deposit, error) {
	rows, err := r.querier.Query(ctx, listDepositsByStatusQuery, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list deposits", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits := make([]*deposit.Deposit, 0)
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			r.logger.Error("Failed to scan deposit", "error", err)
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over deposits: %w", err)
	}
	return deposits, nil
}
