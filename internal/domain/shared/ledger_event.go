package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger notification consumed by the fan-out.
type EventType string

const (
	EventBalanceUpdated      EventType = "balance_updated"
	EventDepositConfirmed    EventType = "deposit_confirmed"
	EventDepositFailed       EventType = "deposit_failed"
	EventDepositRetained     EventType = "deposit_retained"
	EventWithdrawalProcessed EventType = "withdrawal_processed"
)

// LedgerEvent is the message written to the outbox and published to Kafka.
// Only the fields relevant to the event type are set.
type LedgerEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	Type          EventType `json:"type"`
	UserID        uuid.UUID `json:"user_id"`
	DepositID     string    `json:"deposit_id,omitempty"`
	WithdrawalID  string    `json:"withdrawal_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"` // cents
	Balance       *int64    `json:"balance,omitempty"`
	NewBalance    *int64    `json:"new_balance,omitempty"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewLedgerEvent creates an event with a fresh id and timestamp.
func NewLedgerEvent(eventType EventType, userID uuid.UUID) *LedgerEvent {
	return &LedgerEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// BalanceUpdated builds a balance_updated event.
func BalanceUpdated(userID uuid.UUID, balance int64) *LedgerEvent {
	e := NewLedgerEvent(EventBalanceUpdated, userID)
	e.Balance = &balance
	return e
}

// DepositConfirmed builds a deposit_confirmed event.
func DepositConfirmed(userID uuid.UUID, depositID string, amount, newBalance int64) *LedgerEvent {
	e := NewLedgerEvent(EventDepositConfirmed, userID)
	e.DepositID = depositID
	e.Amount = amount
	e.NewBalance = &newBalance
	return e
}

// DepositFailed builds a deposit_failed event.
func DepositFailed(userID uuid.UUID, depositID string) *LedgerEvent {
	e := NewLedgerEvent(EventDepositFailed, userID)
	e.DepositID = depositID
	return e
}

// DepositRetained builds a deposit_retained event.
func DepositRetained(userID uuid.UUID, depositID, reason string) *LedgerEvent {
	e := NewLedgerEvent(EventDepositRetained, userID)
	e.DepositID = depositID
	e.Reason = reason
	return e
}

// WithdrawalProcessed builds a withdrawal_processed event.
func WithdrawalProcessed(userID uuid.UUID, withdrawalID string, amount int64, status string) *LedgerEvent {
	e := NewLedgerEvent(EventWithdrawalProcessed, userID)
	e.WithdrawalID = withdrawalID
	e.Amount = amount
	e.Status = status
	return e
}
