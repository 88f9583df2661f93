// Package deposit models inbound PIX charges and their settlement state machine.
package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Status of a deposit. CONFIRMED, FAILED and RETIDO are terminal for webhooks.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
	StatusRetained  Status = "RETIDO"
)

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusRetained
}

// Deposit is a PIX charge issued through an acquiring provider.
type Deposit struct {
	ID                    uuid.UUID       `json:"id"`
	ExternalID            string          `json:"external_id"`
	UserID                uuid.UUID       `json:"user_id"`
	MerchantID            *uuid.UUID      `json:"merchant_id,omitempty"`
	ProductID             *uuid.UUID      `json:"product_id,omitempty"`
	Provider              shared.Provider `json:"provider"`
	ProviderTransactionID string          `json:"provider_transaction_id"`
	Amount                int64           `json:"amount"`     // gross, cents
	NetAmount             int64           `json:"net_amount"` // gross minus commission split, cents
	Status                Status          `json:"status"`
	PayerName             string          `json:"payer_name"`
	PayerDocument         string          `json:"payer_document"`
	PayerEmail            string          `json:"payer_email,omitempty"`
	QRCode                string          `json:"qr_code"`
	ResolvedBy            *uuid.UUID      `json:"resolved_by,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	SettledAt             *time.Time      `json:"settled_at,omitempty"`
}

// CreditAmount returns the amount to credit on confirmation. When the provider reports a
// net amount below the gross, its processing fee is taken from the locally computed net.
func (d *Deposit) CreditAmount(providerNet *int64) int64 {
	credit := d.NetAmount
	if providerNet != nil && *providerNet > 0 && *providerNet < d.Amount {
		credit -= d.Amount - *providerNet
	}
	if credit < 0 {
		return 0
	}
	return credit
}

// Settle moves the deposit to a terminal status.
func (d *Deposit) Settle(status Status) {
	now := time.Now().UTC()
	d.Status = status
	d.UpdatedAt = now
	d.SettledAt = &now
}

// Payer is the identity sent to the provider for a charge.
type Payer struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email,omitempty"`
}
