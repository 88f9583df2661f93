package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/logger"
)

// settler applies terminal transitions to deposits and withdrawals. Every method runs
// inside the caller's transaction on rows the caller already locked.
type settler struct {
	depositRepo    deposit.Repository
	withdrawalRepo withdrawal.Repository
	ledgerRepo     ledger.Repository
	balances       BalanceManager
	events         EventRecorder
	logger         *slog.Logger
}

// confirmDeposit credits a deposit. Checkout deposits credit each split leg in status
// legsFrom to its own user; plain deposits credit the owner and get a DEPOSIT entry.
func (s *settler) confirmDeposit(ctx context.Context, tx pgx.Tx, d *deposit.Deposit, providerNet *int64, legsFrom shared.TransactionStatus) error {
	ledgerTx := s.ledgerRepo.WithTx(tx)

	legs, err := s.splitLegs(ctx, ledgerTx, d.ExternalID, legsFrom)
	if err != nil {
		return err
	}

	var events []*shared.LedgerEvent
	if len(legs) == 0 {
		credit := d.CreditAmount(providerNet)
		evs, err := s.creditUser(ctx, tx, d, d.UserID, credit, true)
		if err != nil {
			return err
		}
		events = append(events, evs...)

		metadata := map[string]any{
			"deposit_id":              d.ID.String(),
			"gross_amount":            d.Amount,
			"provider":                string(d.Provider),
			"provider_transaction_id": d.ProviderTransactionID,
		}
		if providerNet != nil {
			metadata["provider_net_amount"] = *providerNet
		}
		entry := ledger.NewEntry(d.UserID, shared.TransactionTypeDeposit, credit, shared.TransactionStatusConfirmed, d.ExternalID, metadata)
		if err := ledgerTx.Create(ctx, entry); err != nil {
			return err
		}
	} else {
		for _, leg := range legs {
			if leg.Type == shared.TransactionTypeSale {
				leg.Amount = d.CreditAmount(providerNet)
			}
			leg.Status = shared.TransactionStatusConfirmed
			leg.UpdatedAt = time.Now().UTC()
			if err := ledgerTx.Update(ctx, leg); err != nil {
				return err
			}

			evs, err := s.creditUser(ctx, tx, d, leg.UserID, leg.Amount, leg.Type == shared.TransactionTypeSale)
			if err != nil {
				return err
			}
			events = append(events, evs...)
		}
	}

	d.Settle(deposit.StatusConfirmed)
	if err := s.depositRepo.WithTx(tx).UpdateStatus(ctx, d); err != nil {
		return err
	}
	if err := s.events.Record(ctx, tx, events...); err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Info("Deposit confirmed",
		"deposit_id", d.ID.String(),
		"external_id", d.ExternalID,
		"legs", len(legs),
	)
	return nil
}

// creditUser credits amount to userID and returns the events describing it. Only the
// deposit owner receives deposit_confirmed.
func (s *settler) creditUser(ctx context.Context, tx pgx.Tx, d *deposit.Deposit, userID uuid.UUID, amount int64, owner bool) ([]*shared.LedgerEvent, error) {
	if amount <= 0 {
		logger.FromContext(ctx, s.logger).Warn("Nothing to credit after provider fee",
			"deposit_id", d.ID.String(),
			"user_id", userID.String(),
		)
		if !owner {
			return nil, nil
		}
		e := shared.NewLedgerEvent(shared.EventDepositConfirmed, userID)
		e.DepositID = d.ID.String()
		return []*shared.LedgerEvent{e}, nil
	}

	u, err := s.balances.Credit(ctx, tx, userID, amount)
	if err != nil {
		return nil, err
	}

	var events []*shared.LedgerEvent
	if owner {
		events = append(events, shared.DepositConfirmed(userID, d.ID.String(), amount, u.Balance))
	}
	events = append(events, shared.BalanceUpdated(userID, u.Balance))
	return events, nil
}

// failDeposit marks the deposit FAILED. Split legs follow; the balance is untouched.
func (s *settler) failDeposit(ctx context.Context, tx pgx.Tx, d *deposit.Deposit, legsFrom shared.TransactionStatus) error {
	if err := s.moveLegs(ctx, tx, d.ExternalID, legsFrom, shared.TransactionStatusFailed); err != nil {
		return err
	}

	d.Settle(deposit.StatusFailed)
	if err := s.depositRepo.WithTx(tx).UpdateStatus(ctx, d); err != nil {
		return err
	}
	if err := s.events.Record(ctx, tx, shared.DepositFailed(d.UserID, d.ID.String())); err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Info("Deposit failed", "deposit_id", d.ID.String(), "external_id", d.ExternalID)
	return nil
}

// retainDeposit records funds frozen by the provider: a REFUND entry at the gross amount
// for audit and no credit.
func (s *settler) retainDeposit(ctx context.Context, tx pgx.Tx, d *deposit.Deposit, reason string) error {
	entry := ledger.NewEntry(d.UserID, shared.TransactionTypeRefund, d.Amount, shared.TransactionStatusRetained, d.ExternalID,
		map[string]any{
			"deposit_id":              d.ID.String(),
			"reason":                  reason,
			"provider":                string(d.Provider),
			"provider_transaction_id": d.ProviderTransactionID,
		})
	if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return err
	}

	if err := s.moveLegs(ctx, tx, d.ExternalID, shared.TransactionStatusPending, shared.TransactionStatusRetained); err != nil {
		return err
	}

	d.Settle(deposit.StatusRetained)
	if err := s.depositRepo.WithTx(tx).UpdateStatus(ctx, d); err != nil {
		return err
	}
	if err := s.events.Record(ctx, tx, shared.DepositRetained(d.UserID, d.ID.String(), reason)); err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Warn("Deposit retained by provider",
		"deposit_id", d.ID.String(),
		"external_id", d.ExternalID,
		"amount", d.Amount,
	)
	return nil
}

func (s *settler) splitLegs(ctx context.Context, ledgerTx ledger.Repository, externalID string, status shared.TransactionStatus) ([]*ledger.Entry, error) {
	entries, err := ledgerTx.ListByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	legs := make([]*ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsSplitLeg() && e.Status == status {
			legs = append(legs, e)
		}
	}
	return legs, nil
}

func (s *settler) moveLegs(ctx context.Context, tx pgx.Tx, externalID string, from, to shared.TransactionStatus) error {
	ledgerTx := s.ledgerRepo.WithTx(tx)
	for _, typ := range []shared.TransactionType{shared.TransactionTypeSale, shared.TransactionTypeCommission} {
		if _, err := ledgerTx.UpdateStatusByExternalID(ctx, externalID, typ, from, to); err != nil {
			return err
		}
	}
	return nil
}

// mirrorStatus is the status of the WITHDRAWAL ledger entry for a withdrawal status.
func mirrorStatus(s withdrawal.Status) shared.TransactionStatus {
	switch s {
	case withdrawal.StatusProcessing:
		return shared.TransactionStatusProcessing
	case withdrawal.StatusCompleted:
		return shared.TransactionStatusCompleted
	case withdrawal.StatusRejected:
		return shared.TransactionStatusRejected
	case withdrawal.StatusFailed:
		return shared.TransactionStatusFailed
	}
	return shared.TransactionStatusPending
}

// transitionWithdrawal persists w in status and moves its mirror entry along.
func (s *settler) transitionWithdrawal(ctx context.Context, tx pgx.Tx, w *withdrawal.Withdrawal, status withdrawal.Status, reason string) error {
	if err := checkWithdrawalTransition(w, status); err != nil {
		return err
	}
	from := mirrorStatus(w.Status)
	w.Transition(status, reason)

	if err := s.withdrawalRepo.WithTx(tx).UpdateStatus(ctx, w); err != nil {
		return err
	}

	to := mirrorStatus(status)
	if from == to {
		return nil
	}
	n, err := s.ledgerRepo.WithTx(tx).UpdateStatusByExternalID(ctx, w.ExternalID, shared.TransactionTypeWithdrawal, from, to)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.FromContext(ctx, s.logger).Warn("Withdrawal mirror entry not found",
			"withdrawal_id", w.ID.String(),
			"external_id", w.ExternalID,
			"from", string(from),
		)
	}
	return nil
}

func checkWithdrawalTransition(w *withdrawal.Withdrawal, next withdrawal.Status) error {
	if !w.Status.CanTransition(next) {
		return shared.InvalidStateError{Entity: "withdrawal", ID: w.ID.String(), Status: string(w.Status)}
	}
	return nil
}

// completeWithdrawal finalizes a payout. The gross was debited at creation.
func (s *settler) completeWithdrawal(ctx context.Context, tx pgx.Tx, w *withdrawal.Withdrawal) error {
	if err := s.transitionWithdrawal(ctx, tx, w, withdrawal.StatusCompleted, ""); err != nil {
		return err
	}
	event := shared.WithdrawalProcessed(w.UserID, w.ID.String(), w.NetAmount, string(withdrawal.StatusCompleted))
	if err := s.events.Record(ctx, tx, event); err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Info("Withdrawal completed", "withdrawal_id", w.ID.String(), "net_amount", w.NetAmount)
	return nil
}

// reverseWithdrawal re-credits the gross amount and moves w to status (FAILED or
// REJECTED). Callers guarantee w is not terminal, so the credit happens once.
// compensate adds a DEPOSIT entry for the returned funds.
func (s *settler) reverseWithdrawal(ctx context.Context, tx pgx.Tx, w *withdrawal.Withdrawal, status withdrawal.Status, reason string, compensate bool) error {
	if err := checkWithdrawalTransition(w, status); err != nil {
		return err
	}
	u, err := s.balances.Credit(ctx, tx, w.UserID, w.Amount)
	if err != nil {
		return err
	}

	if err := s.transitionWithdrawal(ctx, tx, w, status, reason); err != nil {
		return err
	}

	if compensate {
		entry := ledger.NewEntry(w.UserID, shared.TransactionTypeDeposit, w.Amount, shared.TransactionStatusConfirmed, w.ExternalID,
			map[string]any{
				"withdrawal_id": w.ID.String(),
				"reason":        reason,
				"compensation":  true,
			})
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
	}

	events := []*shared.LedgerEvent{
		shared.BalanceUpdated(w.UserID, u.Balance),
		shared.WithdrawalProcessed(w.UserID, w.ID.String(), w.Amount, string(status)),
	}
	if err := s.events.Record(ctx, tx, events...); err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Info("Withdrawal reversed",
		"withdrawal_id", w.ID.String(),
		"status", string(status),
		"reason", reason,
		"credited", w.Amount,
		"new_balance", u.Balance,
	)
	return nil
}
