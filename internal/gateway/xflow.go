package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

const (
	xFlowLoginPath       = "/auth/login"
	xFlowCashInPath      = "/api/v1/pix/cash-in"
	xFlowCashOutPath     = "/api/v1/pix/cash-out"
	defaultXFlowTokenTTL = time.Hour
)

type XFlowOptions struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	WebhookBaseURL string
	TokenTTL       time.Duration // used when the login response carries no expiry
}

// XFlowAdapter logs in with client credentials and caches the bearer token.
type XFlowAdapter struct {
	http   *providerClient
	opts   XFlowOptions
	tokens *TokenCache
	logger *slog.Logger
}

func NewXFlowAdapter(logger *slog.Logger, client *http.Client, opts XFlowOptions) *XFlowAdapter {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultXFlowTokenTTL
	}
	a := &XFlowAdapter{
		http:   newProviderClient(logger, shared.ProviderXFlow, opts.BaseURL, client),
		opts:   opts,
		logger: logger.With("provider", string(shared.ProviderXFlow)),
	}
	a.tokens = NewTokenCache(a.login)
	return a
}

func (a *XFlowAdapter) Name() shared.Provider {
	return shared.ProviderXFlow
}

// login exchanges client credentials for a bearer token.
func (a *XFlowAdapter) login(ctx context.Context) (string, time.Time, error) {
	payload := map[string]string{
		"client_id":     a.opts.ClientID,
		"client_secret": a.opts.ClientSecret,
	}
	_, body, err := a.http.postJSON(ctx, xFlowLoginPath, "", payload)
	if err != nil {
		return "", time.Time{}, err
	}

	token := pickString(body, "token", "access_token")
	if token == "" {
		return "", time.Time{}, &shared.GatewayError{Provider: shared.ProviderXFlow, Message: "login response missing token"}
	}

	ttl := a.opts.TokenTTL
	if raw := pickString(body, "expires_in"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	a.logger.Info("XFlow token refreshed", "ttl", ttl.String())
	return token, time.Now().Add(ttl), nil
}

// call posts with the cached token. A 401 drops the token so the next call logs in again.
func (a *XFlowAdapter) call(ctx context.Context, path string, payload any) (map[string]any, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	_, body, err := a.http.postJSON(ctx, path, token, payload)
	if err != nil {
		var gwErr *shared.GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusUnauthorized {
			a.tokens.Invalidate()
		}
		return nil, err
	}
	return body, nil
}

func (a *XFlowAdapter) CreateDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	callback := CallbackURL(a.opts.WebhookBaseURL, shared.ProviderXFlow, req.ExternalID)
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

	body, err := a.call(ctx, xFlowCashInPath, payload)
	if err != nil {
		return nil, err
	}

	result := &DepositResult{
		ProviderTransactionID: pickTransactionID(body),
		QRCode:                pickQRCode(body),
		Status:                pickStatus(body),
	}
	if result.QRCode == "" {
		return nil, &shared.GatewayError{Provider: shared.ProviderXFlow, Message: "response missing pix payload"}
	}

	a.logger.Info("XFlow deposit created", "external_id", req.ExternalID, "provider_transaction_id", result.ProviderTransactionID)
	return result, nil
}

func (a *XFlowAdapter) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error) {
	keyType, err := ToXFlowKeyType(req.KeyType)
	if err != nil {
		return nil, &shared.GatewayError{Provider: shared.ProviderXFlow, Message: err.Error()}
	}

	payload := map[string]any{
		"amount":            majorUnits(req.Amount),
		"external_id":       req.ExternalID,
		"pix_key":           req.PixKey,
		"key_type":          keyType,
		"description":       req.Description,
		"clientCallbackUrl": CallbackURL(a.opts.WebhookBaseURL, shared.ProviderXFlow, req.ExternalID),
	}

	body, err := a.call(ctx, xFlowCashOutPath, payload)
	if err != nil {
		return nil, err
	}

	result := &WithdrawalResult{
		ProviderTransactionID: pickTransactionID(body),
		Status:                pickStatus(body),
	}
	a.logger.Info("XFlow withdrawal dispatched", "external_id", req.ExternalID, "provider_transaction_id", result.ProviderTransactionID)
	return result, nil
}
