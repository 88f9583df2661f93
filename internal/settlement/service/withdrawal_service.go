package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/fee"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

// WithdrawalServiceImpl implements the WithdrawalService interface
type WithdrawalServiceImpl struct {
	settler
	txRunner    persistence.TxRunner
	gateways    Gateways
	userRepo    user.Repository
	fees        FeeResolver
	minNetCents int64
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	gateways Gateways,
	userRepo user.Repository,
	withdrawalRepo withdrawal.Repository,
	ledgerRepo ledger.Repository,
	fees FeeResolver,
	balances BalanceManager,
	events EventRecorder,
	minNetCents int64,
) WithdrawalService {
	return &WithdrawalServiceImpl{
		settler: settler{
			withdrawalRepo: withdrawalRepo,
			ledgerRepo:     ledgerRepo,
			balances:       balances,
			events:         events,
			logger:         logger,
		},
		txRunner:    txRunner,
		gateways:    gateways,
		userRepo:    userRepo,
		fees:        fees,
		minNetCents: minNetCents,
	}
}

// CreateWithdrawal reserves the gross amount and records the request. With auto-withdraw
// enabled the payout is dispatched right away and reversed if the provider refuses it.
func (s *WithdrawalServiceImpl) CreateWithdrawal(ctx context.Context, in CreateWithdrawalInput) (*withdrawal.Withdrawal, error) {
	log := logger.FromContext(ctx, s.logger)

	if strings.TrimSpace(in.PixKey) == "" {
		return nil, shared.ValidationError{Field: "pix_key", Reason: "is required"}
	}
	if _, ok := withdrawal.ParseKeyType(string(in.KeyType)); !ok {
		return nil, shared.ValidationError{Field: "key_type", Reason: "must be one of CPF, CNPJ, EMAIL, PHONE, RANDOM"}
	}

	u, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	policy, err := s.fees.Resolve(ctx, u)
	if err != nil {
		return nil, err
	}
	breakdown, err := fee.Compute(in.Amount, policy, s.minNetCents)
	if err != nil {
		log.Info("Withdrawal rejected by fee policy",
			"user_id", in.UserID.String(),
			"amount", in.Amount,
			"policy", policy.String(),
			"error", err,
		)
		return nil, err
	}

	keyType, _ := withdrawal.ParseKeyType(string(in.KeyType))
	status := withdrawal.StatusPendingApproval
	if u.AutoWithdraw {
		status = withdrawal.StatusPending
	}

	now := time.Now().UTC()
	w := &withdrawal.Withdrawal{
		ID:          uuid.New(),
		ExternalID:  withdrawal.NewExternalID(),
		UserID:      u.ID,
		Amount:      breakdown.Amount,
		FeeAmount:   breakdown.FeeAmount,
		NetAmount:   breakdown.NetAmount,
		Status:      status,
		PixKey:      strings.TrimSpace(in.PixKey),
		KeyType:     keyType,
		Description: in.Description,
		Provider:    s.gateways.ForWithdrawals().Name(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		reserved, err := s.balances.Reserve(ctx, tx, w.UserID, w.Amount)
		if err != nil {
			return err
		}
		if err := s.withdrawalRepo.WithTx(tx).Create(ctx, w); err != nil {
			return err
		}

		mirror := ledger.NewEntry(w.UserID, shared.TransactionTypeWithdrawal, w.Amount, shared.TransactionStatusPending, w.ExternalID,
			map[string]any{
				"withdrawal_id": w.ID.String(),
				"fee_amount":    w.FeeAmount,
				"net_amount":    w.NetAmount,
				"pix_key":       w.PixKey,
				"key_type":      string(w.KeyType),
			})
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, mirror); err != nil {
			return err
		}

		return s.events.Record(ctx, tx, shared.BalanceUpdated(w.UserID, reserved.Balance))
	})
	if err != nil {
		log.Info("Withdrawal not created", "user_id", in.UserID.String(), "amount", in.Amount, "error", err)
		return nil, err
	}

	log.Info("Withdrawal created",
		"withdrawal_id", w.ID.String(),
		"user_id", w.UserID.String(),
		"amount", w.Amount,
		"fee", w.FeeAmount,
		"net_amount", w.NetAmount,
		"status", string(w.Status),
	)

	if !u.AutoWithdraw {
		return w, nil
	}
	return s.dispatch(ctx, w)
}

// dispatch sends an auto-withdrawal to the provider outside any transaction. A refusal
// re-credits the reservation before the error is returned.
func (s *WithdrawalServiceImpl) dispatch(ctx context.Context, w *withdrawal.Withdrawal) (*withdrawal.Withdrawal, error) {
	log := logger.FromContext(ctx, s.logger)

	res, gwErr := s.gateways.ForWithdrawals().CreateWithdrawal(ctx, gateway.WithdrawalRequest{
		Amount:      w.NetAmount,
		ExternalID:  w.ExternalID,
		PixKey:      w.PixKey,
		KeyType:     w.KeyType,
		Description: w.Description,
	})

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.withdrawalRepo.WithTx(tx).LockByID(ctx, w.ID)
		if err != nil {
			return err
		}
		if locked.Status.IsTerminal() {
			w = locked
			return nil
		}
		if gwErr != nil {
			return s.reverseWithdrawal(ctx, tx, locked, withdrawal.StatusFailed, string(shared.FailureReasonGatewayError), false)
		}
		if res != nil {
			locked.ProviderTransactionID = res.ProviderTransactionID
		}
		if err := s.transitionWithdrawal(ctx, tx, locked, withdrawal.StatusProcessing, ""); err != nil {
			return err
		}
		w = locked
		return nil
	})
	if err != nil {
		log.Error("Failed to record withdrawal dispatch",
			"withdrawal_id", w.ID.String(),
			"gateway_error", gwErr,
			"error", err,
		)
		return nil, err
	}

	if gwErr != nil {
		log.Warn("Auto-withdrawal refused by gateway, reservation returned",
			"withdrawal_id", w.ID.String(),
			"error", gwErr,
		)
		return nil, gwErr
	}

	log.Info("Auto-withdrawal dispatched",
		"withdrawal_id", w.ID.String(),
		"provider_transaction_id", w.ProviderTransactionID,
	)
	return w, nil
}

// GetWithdrawal retrieves a withdrawal by its ID
func (s *WithdrawalServiceImpl) GetWithdrawal(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	return s.withdrawalRepo.GetByID(ctx, id)
}
