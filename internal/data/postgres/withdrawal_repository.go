package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

const withdrawalColumns = `id, external_id, user_id, amount, fee_amount, net_amount, status, pix_key, key_type,
	description, provider, provider_transaction_id, failure_reason, reviewed_by, created_at, updated_at, processed_at`

const (
	createWithdrawalQuery = `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	getWithdrawalByIDQuery = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	lockWithdrawalByIDQuery = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`

	lockWithdrawalByExternalIDQuery = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE external_id = $1 FOR UPDATE`

	claimWithdrawalQuery = `
		UPDATE withdrawals
		SET status = $1, reviewed_by = $2, updated_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)
		RETURNING ` + withdrawalColumns

	updateWithdrawalStatusQuery = `
		UPDATE withdrawals
		SET status = $1, provider = $2, provider_transaction_id = $3, failure_reason = $4,
			reviewed_by = $5, updated_at = $6, processed_at = $7
		WHERE id = $8
	`

	listWithdrawalsByStatusQuery = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	countWithdrawalsByStatusQuery = `SELECT COUNT(*) FROM withdrawals WHERE status = $1`
)

// WithdrawalRepository implements the withdrawal.Repository interface for PostgreSQL
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository
func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanWithdrawal(row pgx.Row) (*withdrawal.Withdrawal, error) {
	var w withdrawal.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.ExternalID,
		&w.UserID,
		&w.Amount,
		&w.FeeAmount,
		&w.NetAmount,
		&w.Status,
		&w.PixKey,
		&w.KeyType,
		&w.Description,
		&w.Provider,
		&w.ProviderTransactionID,
		&w.FailureReason,
		&w.ReviewedBy,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a new withdrawal
func (r *WithdrawalRepository) Create(ctx context.Context, w *withdrawal.Withdrawal) error {
	_, err := r.querier.Exec(ctx, createWithdrawalQuery,
		w.ID,
		w.ExternalID,
		w.UserID,
		w.Amount,
		w.FeeAmount,
		w.NetAmount,
		w.Status,
		w.PixKey,
		w.KeyType,
		w.Description,
		w.Provider,
		w.ProviderTransactionID,
		w.FailureReason,
		w.ReviewedBy,
		w.CreatedAt,
		w.UpdatedAt,
		w.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal",
			"external_id", w.ExternalID,
			"error", err,
		)
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

// GetByID retrieves a withdrawal by id
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	w, err := scanWithdrawal(r.querier.QueryRow(ctx, getWithdrawalByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "withdrawal", Key: id.String()}
		}
		r.logger.Error("Failed to get withdrawal", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return w, nil
}

func (r *WithdrawalRepository) LockByID(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	w, err := scanWithdrawal(r.querier.QueryRow(ctx, lockWithdrawalByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "withdrawal", Key: id.String()}
		}
		r.logger.Error("Failed to lock withdrawal", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock withdrawal: %w", err)
	}
	return w, nil
}

func (r *WithdrawalRepository) LockByExternalID(ctx context.Context, externalID string) (*withdrawal.Withdrawal, error) {
	w, err := scanWithdrawal(r.querier.QueryRow(ctx, lockWithdrawalByExternalIDQuery, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "withdrawal", Key: externalID}
		}
		r.logger.Error("Failed to lock withdrawal by external id", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to lock withdrawal: %w", err)
	}
	return w, nil
}

// ClaimForDispatch atomically moves an awaiting withdrawal to PROCESSING so that two
// concurrent approvals cannot both reach the provider.
func (r *WithdrawalRepository) ClaimForDispatch(ctx context.Context, id uuid.UUID, reviewer uuid.UUID) (*withdrawal.Withdrawal, error) {
	w, err := scanWithdrawal(r.querier.QueryRow(ctx, claimWithdrawalQuery,
		withdrawal.StatusProcessing,
		reviewer,
		id,
		withdrawal.StatusPending,
		withdrawal.StatusPendingApproval,
	))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to claim withdrawal", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to claim withdrawal: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, shared.InvalidStateError{Entity: "withdrawal", ID: id.String(), Status: string(current.Status)}
}

// UpdateStatus persists the status, provider reference and review fields of a withdrawal.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, w *withdrawal.Withdrawal) error {
	result, err := r.querier.Exec(ctx, updateWithdrawalStatusQuery,
		w.Status,
		w.Provider,
		w.ProviderTransactionID,
		w.FailureReason,
		w.ReviewedBy,
		w.UpdatedAt,
		w.ProcessedAt,
		w.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update withdrawal status",
			"id", w.ID.String(),
			"status", string(w.Status),
			"error", err,
		)
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "withdrawal", Key: w.ID.String()}
	}
	return nil
}

// ListByStatus returns withdrawals in status, oldest first.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status withdrawal.Status, limit, offset int) ([]*withdrawal.Withdrawal, error) {
	rows, err := r.querier.Query(ctx, listWithdrawalsByStatusQuery, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list withdrawals", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]*withdrawal.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			r.logger.Error("Failed to scan withdrawal", "error", err)
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *WithdrawalRepository) CountByStatus(ctx context.Context, status withdrawal.Status) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, countWithdrawalsByStatusQuery, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count withdrawals", "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}
