package components

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBalanceManager(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name        string
		op          string
		amount      int64
		balance     int64
		lockErr     error
		updateErr   error
		wantErr     error
		wantBalance int64
		wantUpdate  bool
	}{
		{name: "credit", op: "credit", amount: 9500, balance: 500, wantBalance: 10000, wantUpdate: true},
		{name: "reserve", op: "reserve", amount: 3000, balance: 5000, wantBalance: 2000, wantUpdate: true},
		{name: "reserve whole balance", op: "reserve", amount: 5000, balance: 5000, wantBalance: 0, wantUpdate: true},
		{name: "reserve above balance", op: "reserve", amount: 5001, balance: 5000, wantErr: shared.ErrInsufficientBalance},
		{name: "credit zero", op: "credit", amount: 0, balance: 5000, wantErr: user.ErrInvalidAmount},
		{
			name:    "unknown user",
			op:      "credit",
			amount:  100,
			lockErr: shared.NotFoundError{Entity: "user", Key: userID.String()},
			wantErr: shared.NotFoundError{Entity: "user"},
		},
		{
			name:       "update failure",
			op:         "credit",
			amount:     100,
			balance:    0,
			updateErr:  errors.New("connection reset"),
			wantErr:    errors.New("connection reset"),
			wantUpdate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockUserRepo{}
			repo.On("WithTx", mock.Anything).Return(repo)
			if tt.lockErr != nil {
				repo.On("LockForUpdate", ctx, userID).Return(nil, tt.lockErr).Once()
			} else {
				repo.On("LockForUpdate", ctx, userID).Return(&user.User{ID: userID, Balance: tt.balance}, nil).Once()
			}
			if tt.wantUpdate {
				repo.On("UpdateBalance", ctx, mock.MatchedBy(func(u *user.User) bool {
					return u.ID == userID
				})).Return(tt.updateErr).Once()
			}

			manager := NewBalanceManager(repo, slog.Default())
			var (
				u   *user.User
				err error
			)
			if tt.op == "credit" {
				u, err = manager.Credit(ctx, nil, userID, tt.amount)
			} else {
				u, err = manager.Reserve(ctx, nil, userID, tt.amount)
			}

			if tt.wantErr != nil {
				require.Error(t, err)
				if tt.updateErr != nil {
					assert.Equal(t, tt.updateErr, err)
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBalance, u.Balance)
			}
			if !tt.wantUpdate {
				repo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
		})
	}
}
