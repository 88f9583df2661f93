package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Message is a ledger event queued in the unit of work that moved the balance.
// The settlement worker publishes Payload unchanged, keyed by UserID.
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	UserID        uuid.UUID           `json:"user_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots event into a PENDING row. Events without a user cannot be
// partitioned and are refused.
func NewMessage(event *shared.LedgerEvent) (*Message, error) {
	if event.UserID == uuid.Nil {
		return nil, fmt.Errorf("ledger event %s has no user", event.EventID)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode ledger event %s: %w", event.EventID, err)
	}

	return &Message{
		EventID:   event.EventID,
		UserID:    event.UserID,
		EventType: event.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PartitionKey keeps every event of one user on the same partition.
func (m *Message) PartitionKey() string {
	return m.UserID.String()
}

// ExhaustedAfterFailure reports whether one more failed attempt reaches maxAttempts.
func (m *Message) ExhaustedAfterFailure(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}

// GetEvent decodes the ledger event from the payload
func (m *Message) GetEvent() (*shared.LedgerEvent, error) {
	var event shared.LedgerEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
