// Package user models the balance holders of the ledger and their merchant profiles.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Role is checked by the admin routes and the admin CLI.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User holds the cash balance in cents. The balance is only changed through Credit and
// Debit inside a unit of work that also writes the matching ledger entry.
type User struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         Role             `json:"role"`
	Balance      int64            `json:"balance"`
	FeePercent   *decimal.Decimal `json:"withdraw_fee_percent,omitempty"`
	FeeFixed     *decimal.Decimal `json:"withdraw_fee_fixed,omitempty"`
	AutoWithdraw bool             `json:"auto_withdraw"`
	Version      int              `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Credit adds amount to the balance.
func (u *User) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	u.Balance += amount
	u.UpdatedAt = time.Now()
	u.Version++
	return nil
}

// Debit subtracts amount from the balance, refusing to go negative.
func (u *User) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if u.Balance < amount {
		return shared.ErrInsufficientBalance
	}
	u.Balance -= amount
	u.UpdatedAt = time.Now()
	u.Version++
	return nil
}

// HasFeeOverride reports whether either per-user fee field is set.
func (u *User) HasFeeOverride() bool {
	return u.FeePercent != nil || u.FeeFixed != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Merchant is the store profile used as payer identity for merchant-initiated PIX deposits.
type Merchant struct {
	UserID    uuid.UUID `json:"user_id"`
	StoreName string    `json:"store_name"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
}

// Validate requires a store name and a CPF (11 digits) or CNPJ (14 digits) document.
func (m *Merchant) Validate() error {
	if m == nil || strings.TrimSpace(m.StoreName) == "" {
		return shared.ErrMerchantIncomplete
	}
	doc := OnlyDigits(m.Document)
	if len(doc) != 11 && len(doc) != 14 {
		return shared.ErrMerchantIncomplete
	}
	return nil
}

// OnlyDigits strips punctuation from CPF, CNPJ and phone numbers.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
