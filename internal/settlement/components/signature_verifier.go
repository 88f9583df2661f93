package components

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// HMACVerifier checks hex-encoded HMAC-SHA256 signatures of the raw webhook body.
// A provider without a configured secret rejects every delivery.
type HMACVerifier struct {
	secrets map[shared.Provider][]byte
}

func NewHMACVerifier(cfg *config.GatewaysConfig) service.SignatureVerifier {
	return NewHMACVerifierWithSecrets(map[shared.Provider]string{
		shared.ProviderKeyClub: cfg.KeyClubWebhookSecret,
		shared.ProviderXFlow:   cfg.XFlowWebhookSecret,
	})
}

func NewHMACVerifierWithSecrets(secrets map[shared.Provider]string) *HMACVerifier {
	v := &HMACVerifier{secrets: make(map[shared.Provider][]byte, len(secrets))}
	for provider, secret := range secrets {
		if secret != "" {
			v.secrets[provider] = []byte(secret)
		}
	}
	return v
}

// Verify compares in constant time. A "sha256=" prefix on the signature is accepted.
func (v *HMACVerifier) Verify(provider shared.Provider, rawBody []byte, signature string) error {
	secret, ok := v.secrets[provider]
	if !ok {
		return shared.ErrUnauthorized
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return shared.ErrUnauthorized
	}
	given, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return shared.ErrUnauthorized
	}

	if !hmac.Equal(given, Sign(secret, rawBody)) {
		return shared.ErrUnauthorized
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignHex returns the hex signature a provider sends for body.
func SignHex(secret string, body []byte) string {
	return hex.EncodeToString(Sign([]byte(secret), body))
}
