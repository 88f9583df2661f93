package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Outcome is a provider status mapped onto the internal vocabulary.
type Outcome string

const (
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeRetained  Outcome = "RETIDO"
	OutcomePending   Outcome = "PENDING" // acknowledged without a state change
)

var providerStatuses = map[string]Outcome{
	"COMPLETED": OutcomeCompleted,
	"COMPLETE":  OutcomeCompleted,
	"PAID":      OutcomeCompleted,
	"APPROVED":  OutcomeCompleted,
	"CONFIRMED": OutcomeCompleted,
	"SUCCESS":   OutcomeCompleted,
	"FAILED":    OutcomeFailed,
	"ERROR":     OutcomeFailed,
	"CANCELED":  OutcomeFailed,
	"CANCELLED": OutcomeFailed,
	"EXPIRED":   OutcomeFailed,
	"REFUSED":   OutcomeFailed,
	"REJECTED":  OutcomeFailed,
	"RETIDO":    OutcomeRetained,
	"RETAINED":  OutcomeRetained,
	"MED":       OutcomeRetained,
}

// MapStatus maps a raw provider status. Unknown and in-flight statuses map to OutcomePending.
func MapStatus(raw string) Outcome {
	if o, ok := providerStatuses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return o
	}
	return OutcomePending
}

// Notification is a webhook payload normalized across providers.
type Notification struct {
	Provider              shared.Provider
	CorrelationKey        string
	ProviderTransactionID string
	RawStatus             string
	Outcome               Outcome
	Amount                *int64 // cents
	NetAmount             *int64 // cents, after the provider fee
}

func decodeWebhook(provider shared.Provider, raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	body := map[string]any{}
	if err := dec.Decode(&body); err != nil {
		return nil, shared.ValidationError{Field: "body", Reason: "malformed " + string(provider) + " webhook payload"}
	}
	return body, nil
}

func buildNotification(provider shared.Provider, body map[string]any, correlation string) (*Notification, error) {
	if correlation == "" {
		return nil, shared.ValidationError{Field: "external_id", Reason: "webhook carries no correlation key"}
	}
	status := pickStatus(body)
	if status == "" {
		return nil, shared.ValidationError{Field: "status", Reason: "webhook carries no status"}
	}

	amount, err := pickAmount(body, "amount")
	if err != nil {
		return nil, shared.ValidationError{Field: "amount", Reason: err.Error()}
	}
	net, err := pickAmount(body, "net_amount", "netAmount")
	if err != nil {
		return nil, shared.ValidationError{Field: "net_amount", Reason: err.Error()}
	}

	return &Notification{
		Provider:              provider,
		CorrelationKey:        correlation,
		ProviderTransactionID: pickTransactionID(body),
		RawStatus:             status,
		Outcome:               MapStatus(status),
		Amount:                amount,
		NetAmount:             net,
	}, nil
}

// correlationKey prefers the eid query parameter appended to our callback URLs, then the
// external id echoed in the body, then the provider transaction id.
func correlationKey(eid string, body map[string]any) string {
	if key := strings.TrimSpace(eid); key != "" {
		return key
	}
	if key := pickString(body, "external_id", "externalId"); key != "" {
		return key
	}
	return pickTransactionID(body)
}

// ParseKeyClubNotification reads a KeyClub callback. Payout callbacks often carry only
// KeyClub's transaction id, so eid is what ties them to the withdrawal.
func ParseKeyClubNotification(raw []byte, eid string) (*Notification, error) {
	body, err := decodeWebhook(shared.ProviderKeyClub, raw)
	if err != nil {
		return nil, err
	}
	return buildNotification(shared.ProviderKeyClub, body, correlationKey(eid, body))
}

// ParseXFlowNotification reads an XFlow callback. XFlow does not echo our id in the body.
func ParseXFlowNotification(raw []byte, eid string) (*Notification, error) {
	body, err := decodeWebhook(shared.ProviderXFlow, raw)
	if err != nil {
		return nil, err
	}
	return buildNotification(shared.ProviderXFlow, body, correlationKey(eid, body))
}
