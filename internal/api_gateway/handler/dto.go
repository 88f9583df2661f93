package handler

import (
	"time"

	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
)

// CreateDepositRequest represents a merchant request for a PIX charge
type CreateDepositRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // cents
	ExternalID  string `json:"external_id,omitempty" binding:"omitempty,max=64"`
	CallbackURL string `json:"callback_url,omitempty" binding:"omitempty,url"`
}

// PayerRequest identifies the customer paying a checkout
type PayerRequest struct {
	Name     string `json:"name" binding:"required"`
	Document string `json:"document" binding:"required"`
	Email    string `json:"email,omitempty" binding:"omitempty,email"`
}

// CheckoutRequest represents a customer payment for a product
type CheckoutRequest struct {
	ProductID   string       `json:"product_id" binding:"required,uuid"`
	Payer       PayerRequest `json:"payer" binding:"required"`
	Ref         string       `json:"ref,omitempty"`
	ExternalID  string       `json:"external_id,omitempty" binding:"omitempty,max=64"`
	CallbackURL string       `json:"callback_url,omitempty" binding:"omitempty,url"`
}

// DepositResponse represents a deposit in API responses
type DepositResponse struct {
	ID                    string `json:"id"`
	ExternalID            string `json:"external_id"`
	UserID                string `json:"user_id"`
	ProductID             string `json:"product_id,omitempty"`
	Provider              string `json:"provider"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	Amount                int64  `json:"amount"`
	NetAmount             int64  `json:"net_amount"`
	Status                string `json:"status"`
	QRCode                string `json:"qr_code,omitempty"`
	CreatedAt             string `json:"created_at"`
	SettledAt             string `json:"settled_at,omitempty"`
}

// CreateWithdrawalRequest represents a payout request
type CreateWithdrawalRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // gross, cents
	PixKey      string `json:"pix_key" binding:"required"`
	KeyType     string `json:"key_type" binding:"required"`
	Description string `json:"description,omitempty" binding:"omitempty,max=140"`
}

// WithdrawalResponse represents a withdrawal in API responses
type WithdrawalResponse struct {
	ID                    string `json:"id"`
	ExternalID            string `json:"external_id"`
	UserID                string `json:"user_id"`
	Amount                int64  `json:"amount"`
	FeeAmount             int64  `json:"fee_amount"`
	NetAmount             int64  `json:"net_amount"`
	Status                string `json:"status"`
	PixKey                string `json:"pix_key"`
	KeyType               string `json:"key_type"`
	Provider              string `json:"provider,omitempty"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	FailureReason         string `json:"failure_reason,omitempty"`
	CreatedAt             string `json:"created_at"`
	ProcessedAt           string `json:"processed_at,omitempty"`
}

// RejectWithdrawalRequest carries the optional reason shown to the user
type RejectWithdrawalRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=255"`
}

// ResolveDepositRequest settles a retained deposit
type ResolveDepositRequest struct {
	Action string `json:"action" binding:"required,oneof=confirm fail"`
}

// ListWithdrawalsParams filters the admin queue
type ListWithdrawalsParams struct {
	Status string `form:"status,default=PENDING_APPROVAL" binding:"oneof=PENDING_APPROVAL PENDING PROCESSING COMPLETED REJECTED FAILED"`
	PaginationParams
}

// BalanceResponse represents a user balance in API responses
type BalanceResponse struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Amount     int64          `json:"amount"`
	Status     string         `json:"status"`
	ExternalID string         `json:"external_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapDepositToResponse(d *deposit.Deposit) DepositResponse {
	response := DepositResponse{
		ID:                    d.ID.String(),
		ExternalID:            d.ExternalID,
		UserID:                d.UserID.String(),
		Provider:              string(d.Provider),
		ProviderTransactionID: d.ProviderTransactionID,
		Amount:                d.Amount,
		NetAmount:             d.NetAmount,
		Status:                string(d.Status),
		QRCode:                d.QRCode,
		CreatedAt:             d.CreatedAt.Format(time.RFC3339),
	}
	if d.ProductID != nil {
		response.ProductID = d.ProductID.String()
	}
	if d.SettledAt != nil {
		response.SettledAt = d.SettledAt.Format(time.RFC3339)
	}
	return response
}

func mapWithdrawalToResponse(w *withdrawal.Withdrawal) WithdrawalResponse {
	response := WithdrawalResponse{
		ID:                    w.ID.String(),
		ExternalID:            w.ExternalID,
		UserID:                w.UserID.String(),
		Amount:                w.Amount,
		FeeAmount:             w.FeeAmount,
		NetAmount:             w.NetAmount,
		Status:                string(w.Status),
		PixKey:                w.PixKey,
		KeyType:               string(w.KeyType),
		Provider:              string(w.Provider),
		ProviderTransactionID: w.ProviderTransactionID,
		FailureReason:         w.FailureReason,
		CreatedAt:             w.CreatedAt.Format(time.RFC3339),
	}
	if w.ProcessedAt != nil {
		response.ProcessedAt = w.ProcessedAt.Format(time.RFC3339)
	}
	return response
}

func mapWithdrawalsToResponse(items []*withdrawal.Withdrawal) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(items))
	for _, w := range items {
		out = append(out, mapWithdrawalToResponse(w))
	}
	return out
}

func mapBalanceToResponse(u *user.User) BalanceResponse {
	return BalanceResponse{
		UserID:    u.ID.String(),
		Balance:   u.Balance,
		Formatted: shared.FromMinorUnits(u.Balance).StringFixed(2),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

// mapLedgerEntryToResponse maps a ledger entry to a transaction response DTO
func mapLedgerEntryToResponse(entry *ledger.Entry) TransactionResponse {
	return TransactionResponse{
		ID:         entry.ID.String(),
		Type:       string(entry.Type),
		Amount:     entry.Amount,
		Status:     string(entry.Status),
		ExternalID: entry.ExternalID,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  entry.UpdatedAt.Format(time.RFC3339),
	}
}
