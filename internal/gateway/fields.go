package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// Field names under which providers ship the PIX copy-and-paste payload.
var qrCodeFields = []string{"pix_code", "qrcode", "emv", "payload", "qr_code"}

var transactionIDFields = []string{"transaction_id", "transactionId", "id", "txid"}

// envelopeFields are wrapper objects some responses nest their data in.
var envelopeFields = []string{"data", "transaction", "pix", "result"}

// pickString returns the first non-empty string or number under keys, looking at the
// top level first and then inside known envelope objects.
func pickString(body map[string]any, keys ...string) string {
	if v := firstString(body, keys); v != "" {
		return v
	}
	for _, env := range envelopeFields {
		if nested, ok := body[env].(map[string]any); ok {
			if v := firstString(nested, keys); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func pickQRCode(body map[string]any) string {
	return pickString(body, qrCodeFields...)
}

func pickTransactionID(body map[string]any) string {
	return pickString(body, transactionIDFields...)
}

func pickStatus(body map[string]any) string {
	return strings.ToUpper(pickString(body, "status", "state"))
}

// pickAmount reads a major-unit amount as cents. It returns nil when the field is absent.
func pickAmount(body map[string]any, keys ...string) (*int64, error) {
	raw := pickString(body, keys...)
	if raw == "" {
		return nil, nil
	}
	cents, err := shared.ParseMajorUnits(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount field: %w", err)
	}
	return &cents, nil
}
