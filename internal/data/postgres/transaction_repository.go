package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

const transactionColumns = `id, user_id, type, amount, status, external_id, metadata, created_at, updated_at`

const (
	createTransactionQuery = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	getTransactionByIDQuery = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	listTransactionsByExternalIDQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_id = $1
		ORDER BY created_at ASC, type ASC
	`

	updateTransactionQuery = `
		UPDATE transactions
		SET amount = $1, status = $2, metadata = $3, updated_at = $4
		WHERE id = $5
	`

	updateTransactionStatusByExternalIDQuery = `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE external_id = $2 AND type = $3 AND status = $4
	`

	listTransactionsByUserQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	countTransactionsByUserQuery = `SELECT COUNT(*) FROM transactions WHERE user_id = $1`
)

// TransactionRepository implements ledger.Repository on the transactions table.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL ledger repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func encodeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		e        ledger.Entry
		metadata []byte
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Type,
		&e.Amount,
		&e.Status,
		&e.ExternalID,
		&metadata,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("invalid transaction metadata: %w", err)
		}
	}
	return &e, nil
}

func (r *TransactionRepository) scanEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return entries, nil
}

// Create inserts a ledger entry. The unique (external_id, type, user_id) key rejects a
// second entry for the same event.
func (r *TransactionRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	_, err = r.querier.Exec(ctx, createTransactionQuery,
		entry.ID,
		entry.UserID,
		entry.Type,
		entry.Amount,
		entry.Status,
		entry.ExternalID,
		metadata,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			"external_id", entry.ExternalID,
			"type", string(entry.Type),
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	e, err := scanEntry(r.querier.QueryRow(ctx, getTransactionByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "transaction", Key: id.String()}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return e, nil
}

func (r *TransactionRepository) ListByExternalID(ctx context.Context, externalID string) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, listTransactionsByExternalIDQuery, externalID)
	if err != nil {
		r.logger.Error("Failed to list transactions by external id", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return r.scanEntries(rows)
}

func (r *TransactionRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	result, err := r.querier.Exec(ctx, updateTransactionQuery,
		entry.Amount,
		entry.Status,
		metadata,
		entry.UpdatedAt,
		entry.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "transaction", Key: entry.ID.String()}
	}
	return nil
}

func (r *TransactionRepository) UpdateStatusByExternalID(ctx context.Context, externalID string, typ shared.TransactionType, from, to shared.TransactionStatus) (int64, error) {
	result, err := r.querier.Exec(ctx, updateTransactionStatusByExternalIDQuery, to, externalID, typ, from)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"external_id", externalID,
			"type", string(typ),
			"to", string(to),
			"error", err,
		)
		return 0, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListByUserID returns the user's statement, newest first.
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, listTransactionsByUserQuery, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return r.scanEntries(rows)
}

func (r *TransactionRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, countTransactionsByUserQuery, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
