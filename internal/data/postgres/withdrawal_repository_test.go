package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var withdrawalRowColumns = []string{"id", "external_id", "user_id", "amount", "fee_amount", "net_amount", "status", "pix_key", "key_type",
	"description", "provider", "provider_transaction_id", "failure_reason", "reviewed_by", "created_at", "updated_at", "processed_at"}

func newTestWithdrawal(status withdrawal.Status) *withdrawal.Withdrawal {
	now := time.Now()
	return &withdrawal.Withdrawal{
		ID:         uuid.New(),
		ExternalID: withdrawal.NewExternalID(),
		UserID:     uuid.New(),
		Amount:     3000,
		FeeAmount:  440,
		NetAmount:  2560,
		Status:     status,
		PixKey:     "maria@example.com",
		KeyType:    withdrawal.KeyTypeEmail,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func withdrawalRow(w *withdrawal.Withdrawal) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalRowColumns).AddRow(
		w.ID, w.ExternalID, w.UserID, w.Amount, w.FeeAmount, w.NetAmount, w.Status, w.PixKey, w.KeyType,
		w.Description, w.Provider, w.ProviderTransactionID, w.FailureReason, nil, w.CreatedAt, w.UpdatedAt, nil,
	)
}

func TestWithdrawalRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WithdrawalRepository{querier: mock, logger: newTestLogger()}
	w := newTestWithdrawal(withdrawal.StatusPendingApproval)

	mock.ExpectExec(regexp.QuoteMeta(createWithdrawalQuery)).
		WithArgs(w.ID, w.ExternalID, w.UserID, w.Amount, w.FeeAmount, w.NetAmount, w.Status, w.PixKey, w.KeyType,
			w.Description, w.Provider, w.ProviderTransactionID, w.FailureReason, w.ReviewedBy, w.CreatedAt, w.UpdatedAt, w.ProcessedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepository_LockByExternalID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WithdrawalRepository{querier: mock, logger: newTestLogger()}
	w := newTestWithdrawal(withdrawal.StatusProcessing)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(lockWithdrawalByExternalIDQuery)).WithArgs(w.ExternalID).WillReturnRows(withdrawalRow(w))

		got, err := repo.LockByExternalID(ctx, w.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, withdrawal.StatusProcessing, got.Status)
		assert.Equal(t, int64(2560), got.NetAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(lockWithdrawalByExternalIDQuery)).WithArgs("wd_missing").WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockByExternalID(ctx, "wd_missing")
		assert.ErrorIs(t, err, shared.NotFoundError{Entity: "withdrawal", Key: "wd_missing"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalRepository_ClaimForDispatch(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WithdrawalRepository{querier: mock, logger: newTestLogger()}
	reviewer := uuid.New()

	t.Run("claims awaiting withdrawal", func(t *testing.T) {
		w := newTestWithdrawal(withdrawal.StatusProcessing)
		mock.ExpectQuery(regexp.QuoteMeta(claimWithdrawalQuery)).
			WithArgs(withdrawal.StatusProcessing, reviewer, w.ID, withdrawal.StatusPending, withdrawal.StatusPendingApproval).
			WillReturnRows(withdrawalRow(w))

		got, err := repo.ClaimForDispatch(ctx, w.ID, reviewer)
		require.NoError(t, err)
		assert.Equal(t, withdrawal.StatusProcessing, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal withdrawal is rejected", func(t *testing.T) {
		w := newTestWithdrawal(withdrawal.StatusCompleted)
		mock.ExpectQuery(regexp.QuoteMeta(claimWithdrawalQuery)).
			WithArgs(withdrawal.StatusProcessing, reviewer, w.ID, withdrawal.StatusPending, withdrawal.StatusPendingApproval).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(getWithdrawalByIDQuery)).WithArgs(w.ID).WillReturnRows(withdrawalRow(w))

		got, err := repo.ClaimForDispatch(ctx, w.ID, reviewer)
		assert.Nil(t, got)
		var stateErr shared.InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, string(withdrawal.StatusCompleted), stateErr.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown withdrawal", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(claimWithdrawalQuery)).
			WithArgs(withdrawal.StatusProcessing, reviewer, id, withdrawal.StatusPending, withdrawal.StatusPendingApproval).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(getWithdrawalByIDQuery)).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.ClaimForDispatch(ctx, id, reviewer)
		assert.ErrorIs(t, err, shared.NotFoundError{Entity: "withdrawal"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WithdrawalRepository{querier: mock, logger: newTestLogger()}
	w := newTestWithdrawal(withdrawal.StatusPendingApproval)
	w.Transition(withdrawal.StatusRejected, "invalid pix key")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(updateWithdrawalStatusQuery)).
			WithArgs(w.Status, w.Provider, w.ProviderTransactionID, w.FailureReason, w.ReviewedBy, w.UpdatedAt, w.ProcessedAt, w.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, w))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("deadlock detected")
		mock.ExpectExec(regexp.QuoteMeta(updateWithdrawalStatusQuery)).
			WithArgs(w.Status, w.Provider, w.ProviderTransactionID, w.FailureReason, w.ReviewedBy, w.UpdatedAt, w.ProcessedAt, w.ID).
			WillReturnError(dbErr)

		err := repo.UpdateStatus(ctx, w)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalRepository_ListAndCountByStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WithdrawalRepository{querier: mock, logger: newTestLogger()}
	w := newTestWithdrawal(withdrawal.StatusPendingApproval)

	mock.ExpectQuery(regexp.QuoteMeta(listWithdrawalsByStatusQuery)).
		WithArgs(withdrawal.StatusPendingApproval, 50, 0).
		WillReturnRows(withdrawalRow(w))
	mock.ExpectQuery(regexp.QuoteMeta(countWithdrawalsByStatusQuery)).
		WithArgs(withdrawal.StatusPendingApproval).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	list, err := repo.ListByStatus(ctx, withdrawal.StatusPendingApproval, 50, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	count, err := repo.CountByStatus(ctx, withdrawal.StatusPendingApproval)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
