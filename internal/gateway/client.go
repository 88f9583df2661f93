package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

const maxResponseBytes = 1 << 20

// providerClient performs JSON calls against one provider. Transport failures and non-2xx
// answers are returned as *shared.GatewayError.
type providerClient struct {
	provider shared.Provider
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
}

func newProviderClient(logger *slog.Logger, provider shared.Provider, baseURL string, client *http.Client) *providerClient {
	return &providerClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		logger:   logger.With("provider", string(provider)),
	}
}

// postJSON sends payload and decodes the response body into a generic object.
func (c *providerClient) postJSON(ctx context.Context, path, bearer string, payload any) (int, map[string]any, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode %s request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, &shared.GatewayError{Provider: c.provider, Message: "invalid request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Provider request failed", "path", path, "error", err)
		return 0, nil, &shared.GatewayError{Provider: c.provider, Message: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &shared.GatewayError{Provider: c.provider, StatusCode: resp.StatusCode, Message: "unreadable response", Err: err}
	}

	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = map[string]any{"message": strings.TrimSpace(string(raw))}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := pickString(body, "message", "error", "detail", "error_description")
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("Provider rejected request", "path", path, "status", resp.StatusCode, "message", msg)
		return resp.StatusCode, body, &shared.GatewayError{Provider: c.provider, StatusCode: resp.StatusCode, Message: msg}
	}

	return resp.StatusCode, body, nil
}

// majorUnits renders cents as a JSON number with two decimals.
func majorUnits(cents int64) json.Number {
	return json.Number(shared.FromMinorUnits(cents).StringFixed(2))
}
