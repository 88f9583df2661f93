package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

// WebhookServiceImpl implements the WebhookService interface
type WebhookServiceImpl struct {
	settler
	txRunner persistence.TxRunner
	verifier SignatureVerifier
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	verifier SignatureVerifier,
	depositRepo deposit.Repository,
	withdrawalRepo withdrawal.Repository,
	ledgerRepo ledger.Repository,
	balances BalanceManager,
	events EventRecorder,
) WebhookService {
	return &WebhookServiceImpl{
		settler: settler{
			depositRepo:    depositRepo,
			withdrawalRepo: withdrawalRepo,
			ledgerRepo:     ledgerRepo,
			balances:       balances,
			events:         events,
			logger:         logger,
		},
		txRunner: txRunner,
		verifier: verifier,
	}
}

// Handle authenticates and applies one provider callback. Deliveries for records already
// in a terminal state are acknowledged without side effects.
func (s *WebhookServiceImpl) Handle(ctx context.Context, delivery WebhookDelivery) (*WebhookResult, error) {
	log := logger.FromContext(ctx, s.logger).With("provider", string(delivery.Provider))

	if err := s.verifier.Verify(delivery.Provider, delivery.RawBody, delivery.Signature); err != nil {
		log.Warn("Webhook signature rejected", "error", err)
		return nil, err
	}

	n, err := parseNotification(delivery)
	if err != nil {
		log.Warn("Webhook payload rejected", "error", err)
		return nil, err
	}
	log = log.With("correlation_key", n.CorrelationKey, "provider_status", n.RawStatus)

	var result *WebhookResult
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		d, err := s.depositRepo.WithTx(tx).LockByCorrelation(ctx, n.CorrelationKey)
		if err == nil {
			result, err = s.applyDeposit(ctx, tx, d, n)
			return err
		}
		if !isNotFound(err, "deposit") {
			return err
		}

		w, err := s.withdrawalRepo.WithTx(tx).LockByExternalID(ctx, n.CorrelationKey)
		if err != nil {
			if isNotFound(err, "withdrawal") {
				return shared.NotFoundError{Entity: "transaction", Key: n.CorrelationKey}
			}
			return err
		}
		result, err = s.applyWithdrawal(ctx, tx, w, n)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.NotFoundError{}):
			log.Warn("Webhook for unknown correlation key")
		case errors.Is(err, shared.InvalidStateError{}):
			log.Warn("Webhook refused for current status", "error", err)
		default:
			log.Error("Failed to apply webhook", "error", err)
		}
		return nil, err
	}

	log.Info("Webhook processed",
		"entity", result.Entity,
		"id", result.ID,
		"status", result.Status,
		"duplicate", result.Duplicate,
	)
	return result, nil
}

func parseNotification(delivery WebhookDelivery) (*gateway.Notification, error) {
	switch delivery.Provider {
	case shared.ProviderKeyClub:
		return gateway.ParseKeyClubNotification(delivery.RawBody, delivery.ExternalID)
	case shared.ProviderXFlow:
		return gateway.ParseXFlowNotification(delivery.RawBody, delivery.ExternalID)
	}
	return nil, shared.ValidationError{Field: "provider", Reason: "unknown provider " + string(delivery.Provider)}
}

func (s *WebhookServiceImpl) applyDeposit(ctx context.Context, tx pgx.Tx, d *deposit.Deposit, n *gateway.Notification) (*WebhookResult, error) {
	result := &WebhookResult{Entity: "deposit", ID: d.ID.String(), Status: string(d.Status)}

	if d.Status.IsTerminal() {
		logger.FromContext(ctx, s.logger).Info("Deposit already settled, ignoring webhook",
			"deposit_id", d.ID.String(),
			"status", string(d.Status),
		)
		result.Duplicate = true
		return result, nil
	}

	if d.ProviderTransactionID == "" && n.ProviderTransactionID != "" {
		d.ProviderTransactionID = n.ProviderTransactionID
	}

	var err error
	switch n.Outcome {
	case gateway.OutcomeCompleted:
		err = s.confirmDeposit(ctx, tx, d, n.NetAmount, shared.TransactionStatusPending)
	case gateway.OutcomeFailed:
		err = s.failDeposit(ctx, tx, d, shared.TransactionStatusPending)
	case gateway.OutcomeRetained:
		err = s.retainDeposit(ctx, tx, d, string(shared.FailureReasonRetained))
	default:
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Status = string(d.Status)
	return result, nil
}

func (s *WebhookServiceImpl) applyWithdrawal(ctx context.Context, tx pgx.Tx, w *withdrawal.Withdrawal, n *gateway.Notification) (*WebhookResult, error) {
	result := &WebhookResult{Entity: "withdrawal", ID: w.ID.String(), Status: string(w.Status)}

	if w.Status.IsTerminal() {
		logger.FromContext(ctx, s.logger).Info("Withdrawal already settled, ignoring webhook",
			"withdrawal_id", w.ID.String(),
			"status", string(w.Status),
		)
		result.Duplicate = true
		return result, nil
	}

	var next withdrawal.Status
	switch n.Outcome {
	case gateway.OutcomeCompleted:
		next = withdrawal.StatusCompleted
	case gateway.OutcomeFailed:
		next = withdrawal.StatusFailed
	default:
		return result, nil
	}

	// a payout nobody approved cannot be settled by the provider
	if !w.Status.CanTransition(next) {
		logger.FromContext(ctx, s.logger).Warn("Webhook for withdrawal not dispatched, refusing",
			"withdrawal_id", w.ID.String(),
			"status", string(w.Status),
			"provider_outcome", string(n.Outcome),
		)
		return nil, shared.InvalidStateError{Entity: "withdrawal", ID: w.ID.String(), Status: string(w.Status)}
	}

	if w.ProviderTransactionID == "" && n.ProviderTransactionID != "" {
		w.ProviderTransactionID = n.ProviderTransactionID
	}

	var err error
	if next == withdrawal.StatusCompleted {
		err = s.completeWithdrawal(ctx, tx, w)
	} else {
		err = s.reverseWithdrawal(ctx, tx, w, withdrawal.StatusFailed, string(shared.FailureReasonProviderFailed), false)
	}
	if err != nil {
		return nil, err
	}

	result.Status = string(w.Status)
	return result, nil
}
