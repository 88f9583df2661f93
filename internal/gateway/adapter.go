// Package gateway contains the HTTP adapters for the acquiring providers. Each adapter
// translates deposit and withdrawal requests into the provider contract and normalizes
// the responses; adapters never retry.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
)

// DepositRequest asks a provider for a PIX charge. Amount is in cents.
type DepositRequest struct {
	Amount      int64
	ExternalID  string
	Payer       deposit.Payer
	CallbackURL string // optional override of the provider webhook target
}

// DepositResult is the normalized provider answer to a charge.
type DepositResult struct {
	ProviderTransactionID string
	QRCode                string
	Status                string
}

// WithdrawalRequest asks a provider to pay out Amount cents to a PIX key.
type WithdrawalRequest struct {
	Amount      int64
	ExternalID  string
	PixKey      string
	KeyType     withdrawal.KeyType
	Description string
}

// WithdrawalResult is the normalized provider answer to a payout. Both fields may be empty.
type WithdrawalResult struct {
	ProviderTransactionID string
	Status                string
}

// Adapter is implemented once per provider.
type Adapter interface {
	Name() shared.Provider
	CreateDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error)
}

// Registry selects the adapter for each flow from configuration.
type Registry struct {
	adapters   map[shared.Provider]Adapter
	deposit    Adapter
	withdrawal Adapter
}

// NewRegistry builds both adapters with a shared bounded HTTP client.
func NewRegistry(logger *slog.Logger, cfg *config.GatewaysConfig) (*Registry, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	keyClub := NewKeyClubAdapter(logger, client, KeyClubOptions{
		BaseURL:        cfg.KeyClubBaseURL,
		APIKey:         cfg.KeyClubAPIKey,
		WebhookBaseURL: cfg.WebhookPublicBaseURL,
	})
	xFlow := NewXFlowAdapter(logger, client, XFlowOptions{
		BaseURL:        cfg.XFlowBaseURL,
		ClientID:       cfg.XFlowClientID,
		ClientSecret:   cfg.XFlowClientSecret,
		WebhookBaseURL: cfg.WebhookPublicBaseURL,
		TokenTTL:       cfg.XFlowTokenTTL,
	})

	return NewRegistryWith(cfg.DepositGateway, cfg.WithdrawalGateway, keyClub, xFlow)
}

// NewRegistryWith builds a registry from already constructed adapters.
func NewRegistryWith(depositGateway, withdrawalGateway string, adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[shared.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}

	var ok bool
	if r.deposit, ok = r.Get(depositGateway); !ok {
		return nil, fmt.Errorf("unknown deposit gateway %q", depositGateway)
	}
	if r.withdrawal, ok = r.Get(withdrawalGateway); !ok {
		return nil, fmt.Errorf("unknown withdrawal gateway %q", withdrawalGateway)
	}
	return r, nil
}

func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[shared.Provider(strings.ToLower(name))]
	return a, ok
}

// ForDeposits returns the adapter configured for deposits.
func (r *Registry) ForDeposits() Adapter {
	return r.deposit
}

// ForWithdrawals returns the adapter configured for withdrawals.
func (r *Registry) ForWithdrawals() Adapter {
	return r.withdrawal
}

// CallbackURL returns the webhook target for a provider with the correlation key appended as eid.
func CallbackURL(base string, provider shared.Provider, externalID string) string {
	u := strings.TrimRight(base, "/") + "/webhooks/" + string(provider)
	return AppendExternalID(u, externalID)
}

// AppendExternalID adds ?eid=<externalID> to a callback URL, keeping existing query parameters.
func AppendExternalID(callback, externalID string) string {
	parsed, err := url.Parse(callback)
	if err != nil {
		sep := "?"
		if strings.Contains(callback, "?") {
			sep = "&"
		}
		return callback + sep + "eid=" + url.QueryEscape(externalID)
	}
	q := parsed.Query()
	q.Set("eid", externalID)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
