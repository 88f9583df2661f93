// Package activity is the per-user feed projected from ledger events.
package activity

import (
	"context"
	"time"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Entry is a ledger event as shown in a user's activity feed. The event id is the
// document key so replays of the same event are absorbed.
type Entry struct {
	EventID       string           `json:"event_id" bson:"_id"`
	UserID        string           `json:"user_id" bson:"user_id"`
	Type          shared.EventType `json:"type" bson:"type"`
	DepositID     string           `json:"deposit_id,omitempty" bson:"deposit_id,omitempty"`
	WithdrawalID  string           `json:"withdrawal_id,omitempty" bson:"withdrawal_id,omitempty"`
	Amount        int64            `json:"amount,omitempty" bson:"amount,omitempty"`
	Balance       *int64           `json:"balance,omitempty" bson:"balance,omitempty"`
	Status        string           `json:"status,omitempty" bson:"status,omitempty"`
	Reason        string           `json:"reason,omitempty" bson:"reason,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	ProjectedAt   time.Time        `json:"projected_at" bson:"projected_at"`
}

// FromEvent projects a ledger event. Balance carries either the balance_updated value or
// the new balance reported with a deposit confirmation.
func FromEvent(e *shared.LedgerEvent) *Entry {
	balance := e.Balance
	if balance == nil {
		balance = e.NewBalance
	}
	return &Entry{
		EventID:       e.EventID.String(),
		UserID:        e.UserID.String(),
		Type:          e.Type,
		DepositID:     e.DepositID,
		WithdrawalID:  e.WithdrawalID,
		Amount:        e.Amount,
		Balance:       balance,
		Status:        e.Status,
		Reason:        e.Reason,
		CorrelationID: e.CorrelationID,
		OccurredAt:    e.OccurredAt,
		ProjectedAt:   time.Now().UTC(),
	}
}

// Repository stores the feed
type Repository interface {
	// Record inserts the entry unless an entry with the same event id exists.
	// It reports whether a new document was written.
	Record(ctx context.Context, entry *Entry) (bool, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Entry, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}
