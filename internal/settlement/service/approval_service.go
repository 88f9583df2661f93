package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

// ApprovalServiceImpl implements the ApprovalService interface
type ApprovalServiceImpl struct {
	settler
	txRunner persistence.TxRunner
	gateways Gateways
	userRepo user.Repository
}

// NewApprovalService creates a new approval service
func NewApprovalService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	gateways Gateways,
	userRepo user.Repository,
	depositRepo deposit.Repository,
	withdrawalRepo withdrawal.Repository,
	ledgerRepo ledger.Repository,
	balances BalanceManager,
	events EventRecorder,
) ApprovalService {
	return &ApprovalServiceImpl{
		settler: settler{
			depositRepo:    depositRepo,
			withdrawalRepo: withdrawalRepo,
			ledgerRepo:     ledgerRepo,
			balances:       balances,
			events:         events,
			logger:         logger,
		},
		txRunner: txRunner,
		gateways: gateways,
		userRepo: userRepo,
	}
}

// ListWithdrawals returns a page of withdrawals in status and the total count.
func (s *ApprovalServiceImpl) ListWithdrawals(ctx context.Context, status withdrawal.Status, limit, offset int) ([]*withdrawal.Withdrawal, int64, error) {
	items, err := s.withdrawalRepo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.withdrawalRepo.CountByStatus(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ApproveWithdrawal dispatches a reserved withdrawal to the provider. The withdrawal is
// claimed before the call so concurrent approvals cannot pay twice; a provider error puts
// it back in its previous status and leaves the balance alone.
func (s *ApprovalServiceImpl) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID uuid.UUID) (*withdrawal.Withdrawal, error) {
	log := logger.FromContext(ctx, s.logger).With("withdrawal_id", withdrawalID.String(), "admin_id", adminID.String())

	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var (
		claimed  *withdrawal.Withdrawal
		previous withdrawal.Status
	)
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		current, err := s.withdrawalRepo.WithTx(tx).LockByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if !current.Status.AwaitingDispatch() {
			return shared.InvalidStateError{Entity: "withdrawal", ID: current.ID.String(), Status: string(current.Status)}
		}
		previous = current.Status

		claimed, err = s.withdrawalRepo.WithTx(tx).ClaimForDispatch(ctx, withdrawalID, adminID)
		if err != nil {
			return err
		}
		_, err = s.ledgerRepo.WithTx(tx).UpdateStatusByExternalID(ctx, claimed.ExternalID, shared.TransactionTypeWithdrawal,
			mirrorStatus(previous), shared.TransactionStatusProcessing)
		return err
	})
	if err != nil {
		log.Info("Withdrawal not approved", "error", err)
		return nil, err
	}

	res, gwErr := s.gateways.ForWithdrawals().CreateWithdrawal(ctx, gateway.WithdrawalRequest{
		Amount:      claimed.NetAmount,
		ExternalID:  claimed.ExternalID,
		PixKey:      claimed.PixKey,
		KeyType:     claimed.KeyType,
		Description: claimed.Description,
	})

	var result *withdrawal.Withdrawal
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := s.withdrawalRepo.WithTx(tx).LockByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		result = w
		if w.Status != withdrawal.StatusProcessing {
			// settled by a webhook while the provider call was in flight
			return nil
		}
		if gwErr != nil {
			return s.transitionWithdrawal(ctx, tx, w, previous, "")
		}
		if res != nil && res.ProviderTransactionID != "" {
			w.ProviderTransactionID = res.ProviderTransactionID
		}
		return s.completeWithdrawal(ctx, tx, w)
	})
	if err != nil {
		log.Error("Failed to record approval outcome", "gateway_error", gwErr, "error", err)
		return nil, err
	}

	if gwErr != nil {
		log.Warn("Gateway refused approved withdrawal, restored previous status",
			"status", string(previous),
			"error", gwErr,
		)
		return nil, gwErr
	}

	log.Info("Withdrawal approved", "status", string(result.Status), "net_amount", result.NetAmount)
	return result, nil
}

// RejectWithdrawal returns the reserved gross amount to the user.
func (s *ApprovalServiceImpl) RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID, reason string, adminID uuid.UUID) (*withdrawal.Withdrawal, error) {
	log := logger.FromContext(ctx, s.logger).With("withdrawal_id", withdrawalID.String(), "admin_id", adminID.String())

	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = string(shared.FailureReasonAdminRejected)
	}

	var result *withdrawal.Withdrawal
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := s.withdrawalRepo.WithTx(tx).LockByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if !w.Status.AwaitingDispatch() {
			return shared.InvalidStateError{Entity: "withdrawal", ID: w.ID.String(), Status: string(w.Status)}
		}
		reviewer := adminID
		w.ReviewedBy = &reviewer
		result = w
		return s.reverseWithdrawal(ctx, tx, w, withdrawal.StatusRejected, reason, true)
	})
	if err != nil {
		log.Info("Withdrawal not rejected", "error", err)
		return nil, err
	}

	log.Info("Withdrawal rejected", "reason", reason, "credited", result.Amount)
	return result, nil
}

// ResolveRetainedDeposit settles a RETIDO deposit once the provider hold clears: confirm
// credits it like a confirmation webhook, otherwise it fails without balance effect.
func (s *ApprovalServiceImpl) ResolveRetainedDeposit(ctx context.Context, depositID uuid.UUID, confirm bool, adminID uuid.UUID) (*deposit.Deposit, error) {
	log := logger.FromContext(ctx, s.logger).With("deposit_id", depositID.String(), "admin_id", adminID.String())

	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var result *deposit.Deposit
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		d, err := s.depositRepo.WithTx(tx).LockByID(ctx, depositID)
		if err != nil {
			return err
		}
		if d.Status != deposit.StatusRetained {
			return shared.InvalidStateError{Entity: "deposit", ID: d.ID.String(), Status: string(d.Status)}
		}
		resolver := adminID
		d.ResolvedBy = &resolver
		result = d

		if confirm {
			return s.confirmDeposit(ctx, tx, d, nil, shared.TransactionStatusRetained)
		}
		return s.failDeposit(ctx, tx, d, shared.TransactionStatusRetained)
	})
	if err != nil {
		log.Info("Retained deposit not resolved", "error", err)
		return nil, err
	}

	log.Info("Retained deposit resolved", "status", string(result.Status))
	return result, nil
}

func (s *ApprovalServiceImpl) requireAdmin(ctx context.Context, adminID uuid.UUID) error {
	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		if isNotFound(err, "user") {
			return shared.ErrForbidden
		}
		return err
	}
	if !admin.IsAdmin() {
		logger.FromContext(ctx, s.logger).Warn("Non-admin attempted admin action", "user_id", adminID.String())
		return shared.ErrForbidden
	}
	return nil
}
