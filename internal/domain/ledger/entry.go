// Package ledger holds the audit trail of balance-affecting events.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Entry is one row of the transaction audit trail. Its status moves in lockstep with the
// deposit or withdrawal identified by ExternalID.
type Entry struct {
	ID         uuid.UUID                `json:"id"`
	UserID     uuid.UUID                `json:"user_id"`
	Type       shared.TransactionType   `json:"type"`
	Amount     int64                    `json:"amount"` // cents
	Status     shared.TransactionStatus `json:"status"`
	ExternalID string                   `json:"external_id"`
	Metadata   map[string]any           `json:"metadata,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// NewEntry creates an entry for externalID.
func NewEntry(userID uuid.UUID, typ shared.TransactionType, amount int64, status shared.TransactionStatus, externalID string, metadata map[string]any) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       typ,
		Amount:     amount,
		Status:     status,
		ExternalID: externalID,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsSplitLeg reports whether the entry is a checkout leg credited on deposit confirmation.
func (e *Entry) IsSplitLeg() bool {
	return e.Type == shared.TransactionTypeSale || e.Type == shared.TransactionTypeCommission
}
