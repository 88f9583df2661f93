// Package service implements the settlement engine: deposit and withdrawal orchestration,
// webhook ingestion and the manual approval workflow. Every balance change runs inside a
// persistence.TxRunner unit of work together with its status transition, ledger entry and
// outbox events.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/fee"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
)

// FeeResolver returns the withdrawal fee policy that applies to a user.
type FeeResolver interface {
	Resolve(ctx context.Context, u *user.User) (fee.Policy, error)
}

// BalanceManager applies balance changes to a locked user row inside tx.
type BalanceManager interface {
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error)
	// Reserve debits amount, failing with shared.ErrInsufficientBalance before any write.
	Reserve(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error)
}

// EventRecorder writes ledger events to the outbox inside tx.
type EventRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, events ...*shared.LedgerEvent) error
}

// SignatureVerifier authenticates webhook deliveries.
type SignatureVerifier interface {
	Verify(provider shared.Provider, rawBody []byte, signature string) error
}

// Gateways selects the provider adapter for each flow.
type Gateways interface {
	ForDeposits() gateway.Adapter
	ForWithdrawals() gateway.Adapter
}

var _ Gateways = (*gateway.Registry)(nil)

// CreateDepositInput is a merchant-initiated PIX charge.
type CreateDepositInput struct {
	UserID      uuid.UUID
	Amount      int64
	ExternalID  string
	CallbackURL string
}

// CheckoutInput is a customer payment for a product, optionally referred by an affiliate.
type CheckoutInput struct {
	ProductID   uuid.UUID
	Payer       deposit.Payer
	RefCode     string
	ExternalID  string
	CallbackURL string
}

// CreateWithdrawalInput is a payout request.
type CreateWithdrawalInput struct {
	UserID      uuid.UUID
	Amount      int64
	PixKey      string
	KeyType     withdrawal.KeyType
	Description string
}

// WebhookDelivery is an inbound provider callback as received over HTTP.
type WebhookDelivery struct {
	Provider   shared.Provider
	RawBody    []byte
	Signature  string
	ExternalID string // eid query parameter, if present
}

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	Entity    string `json:"entity"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// DepositService creates PIX charges.
type DepositService interface {
	CreateDeposit(ctx context.Context, in CreateDepositInput) (*deposit.Deposit, error)
	Checkout(ctx context.Context, in CheckoutInput) (*deposit.Deposit, error)
	GetDeposit(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error)
}

// WithdrawalService creates payouts.
type WithdrawalService interface {
	CreateWithdrawal(ctx context.Context, in CreateWithdrawalInput) (*withdrawal.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error)
}

// WebhookService ingests provider callbacks.
type WebhookService interface {
	Handle(ctx context.Context, delivery WebhookDelivery) (*WebhookResult, error)
}

// ApprovalService holds the admin actions on withdrawals and retained deposits.
type ApprovalService interface {
	ListWithdrawals(ctx context.Context, status withdrawal.Status, limit, offset int) ([]*withdrawal.Withdrawal, int64, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID, adminID uuid.UUID) (*withdrawal.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID, reason string, adminID uuid.UUID) (*withdrawal.Withdrawal, error)
	ResolveRetainedDeposit(ctx context.Context, depositID uuid.UUID, confirm bool, adminID uuid.UUID) (*deposit.Deposit, error)
}
