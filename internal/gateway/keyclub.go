package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

const (
	keyClubDepositPath    = "/api/payments/deposit"
	keyClubWithdrawalPath = "/api/withdrawals"
)

type KeyClubOptions struct {
	BaseURL        string
	APIKey         string
	WebhookBaseURL string
}

// KeyClubAdapter authenticates with a static API key sent as bearer token.
type KeyClubAdapter struct {
	http   *providerClient
	opts   KeyClubOptions
	logger *slog.Logger
}

func NewKeyClubAdapter(logger *slog.Logger, client *http.Client, opts KeyClubOptions) *KeyClubAdapter {
	return &KeyClubAdapter{
		http:   newProviderClient(logger, shared.ProviderKeyClub, opts.BaseURL, client),
		opts:   opts,
		logger: logger.With("provider", string(shared.ProviderKeyClub)),
	}
}

func (a *KeyClubAdapter) Name() shared.Provider {
	return shared.ProviderKeyClub
}

func (a *KeyClubAdapter) CreateDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	callback := CallbackURL(a.opts.WebhookBaseURL, shared.ProviderKeyClub, req.ExternalID)
	if req.CallbackURL != "" {
		callback = AppendExternalID(req.CallbackURL, req.ExternalID)
	}

	payload := map[string]any{
		"amount":      majorUnits(req.Amount),
		"external_id": req.ExternalID,
		"payer": map[string]any{
			"name":     req.Payer.Name,
			"document": req.Payer.Document,
			"email":    req.Payer.Email,
		},
		"clientCallbackUrl": callback,
	}

	_, body, err := a.http.postJSON(ctx, keyClubDepositPath, a.opts.APIKey, payload)
	if err != nil {
		return nil, err
	}

	result := &DepositResult{
		ProviderTransactionID: pickTransactionID(body),
		QRCode:                pickQRCode(body),
		Status:                pickStatus(body),
	}
	if result.QRCode == "" {
		return nil, &shared.GatewayError{Provider: shared.ProviderKeyClub, Message: "response missing pix payload"}
	}

	a.logger.Info("KeyClub deposit created", "external_id", req.ExternalID, "provider_transaction_id", result.ProviderTransactionID)
	return result, nil
}

func (a *KeyClubAdapter) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error) {
	keyType, err := ToKeyClubKeyType(req.KeyType)
	if err != nil {
		return nil, &shared.GatewayError{Provider: shared.ProviderKeyClub, Message: err.Error()}
	}

	payload := map[string]any{
		"amount":            majorUnits(req.Amount),
		"external_id":       req.ExternalID,
		"pix_key":           req.PixKey,
		"key_type":          keyType,
		"description":       req.Description,
		"clientCallbackUrl": CallbackURL(a.opts.WebhookBaseURL, shared.ProviderKeyClub, req.ExternalID),
	}

	_, body, err := a.http.postJSON(ctx, keyClubWithdrawalPath, a.opts.APIKey, payload)
	if err != nil {
		return nil, err
	}

	result := &WithdrawalResult{
		ProviderTransactionID: pickTransactionID(body),
		Status:                pickStatus(body),
	}
	a.logger.Info("KeyClub withdrawal dispatched", "external_id", req.ExternalID, "provider_transaction_id", result.ProviderTransactionID)
	return result, nil
}
