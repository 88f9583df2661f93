// Package withdrawal models PIX payouts, the fee breakdown and the approval state machine.
package withdrawal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Status of a withdrawal. COMPLETED, REJECTED and FAILED are terminal.
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusPending         Status = "PENDING"
	StatusProcessing      Status = "PROCESSING"
	StatusCompleted       Status = "COMPLETED"
	StatusRejected        Status = "REJECTED"
	StatusFailed          Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusFailed
}

// AwaitingDispatch reports whether the withdrawal can still be approved or rejected.
func (s Status) AwaitingDispatch() bool {
	return s == StatusPending || s == StatusPendingApproval
}

// transitions lists the allowed moves. PENDING may settle straight from a webhook because
// the provider can answer before the auto-dispatch is recorded as PROCESSING. PROCESSING
// goes back to its awaiting status when the provider refuses an approved payout.
var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusProcessing, StatusRejected},
	StatusPending:         {StatusProcessing, StatusCompleted, StatusFailed, StatusRejected},
	StatusProcessing:      {StatusCompleted, StatusFailed, StatusPending, StatusPendingApproval},
}

// CanTransition reports whether a withdrawal in s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// KeyType is the internal PIX key vocabulary.
type KeyType string

const (
	KeyTypeCPF    KeyType = "CPF"
	KeyTypeCNPJ   KeyType = "CNPJ"
	KeyTypeEmail  KeyType = "EMAIL"
	KeyTypePhone  KeyType = "PHONE"
	KeyTypeRandom KeyType = "RANDOM"
)

// ParseKeyType accepts the internal names, case-insensitively, and EVP as RANDOM.
func ParseKeyType(s string) (KeyType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CPF":
		return KeyTypeCPF, true
	case "CNPJ":
		return KeyTypeCNPJ, true
	case "EMAIL":
		return KeyTypeEmail, true
	case "PHONE", "TELEFONE":
		return KeyTypePhone, true
	case "RANDOM", "EVP":
		return KeyTypeRandom, true
	}
	return "", false
}

// Withdrawal is a payout request. Its gross Amount is reserved from the user balance at creation.
type Withdrawal struct {
	ID                    uuid.UUID       `json:"id"`
	ExternalID            string          `json:"external_id"`
	UserID                uuid.UUID       `json:"user_id"`
	Amount                int64           `json:"amount"`     // gross, cents
	FeeAmount             int64           `json:"fee_amount"` // cents
	NetAmount             int64           `json:"net_amount"` // paid out, cents
	Status                Status          `json:"status"`
	PixKey                string          `json:"pix_key"`
	KeyType               KeyType         `json:"key_type"`
	Description           string          `json:"description,omitempty"`
	Provider              shared.Provider `json:"provider,omitempty"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty"`
	FailureReason         string          `json:"failure_reason,omitempty"`
	ReviewedBy            *uuid.UUID      `json:"reviewed_by,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	ProcessedAt           *time.Time      `json:"processed_at,omitempty"`
}

// Transition moves the withdrawal to status and records the reason for failure edges.
func (w *Withdrawal) Transition(status Status, reason string) {
	now := time.Now().UTC()
	w.Status = status
	w.UpdatedAt = now
	if reason != "" {
		w.FailureReason = reason
	}
	if status.IsTerminal() {
		w.ProcessedAt = &now
	}
}

// ExternalIDPrefix starts every withdrawal correlation key.
const ExternalIDPrefix = "wd_"

// NewExternalID generates the correlation key sent to providers.
func NewExternalID() string {
	return ExternalIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
