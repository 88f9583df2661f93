package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/fee"
	"github.com/pix-settlement-ledger/internal/domain/settings"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/settlement/service"
	"github.com/shopspring/decimal"
)

// FeeResolverImpl resolves the withdrawal fee policy: the per-user override when either
// field is set, otherwise the settings store, otherwise the configured defaults.
type FeeResolverImpl struct {
	settingsRepo settings.Repository
	defaults     fee.Policy
	logger       *slog.Logger
}

// NewFeeResolver fails when the configured defaults are not valid decimals.
func NewFeeResolver(settingsRepo settings.Repository, cfg *config.FeesConfig, logger *slog.Logger) (service.FeeResolver, error) {
	defaults, err := fee.ParsePolicy(cfg.WithdrawPercent, cfg.WithdrawFixed)
	if err != nil {
		return nil, fmt.Errorf("invalid default fee policy: %w", err)
	}
	return &FeeResolverImpl{
		settingsRepo: settingsRepo,
		defaults:     defaults,
		logger:       logger,
	}, nil
}

func (r *FeeResolverImpl) Resolve(ctx context.Context, u *user.User) (fee.Policy, error) {
	if u != nil && u.HasFeeOverride() {
		// a missing half of the override counts as zero
		p := fee.Policy{Percent: decimal.Zero, Fixed: decimal.Zero}
		if u.FeePercent != nil {
			p.Percent = *u.FeePercent
		}
		if u.FeeFixed != nil {
			p.Fixed = *u.FeeFixed
		}
		return p, nil
	}

	percent, err := r.setting(ctx, fee.SettingWithdrawPercent, r.defaults.Percent)
	if err != nil {
		return fee.Policy{}, err
	}
	fixed, err := r.setting(ctx, fee.SettingWithdrawFixed, r.defaults.Fixed)
	if err != nil {
		return fee.Policy{}, err
	}
	return fee.Policy{Percent: percent, Fixed: fixed}, nil
}

func (r *FeeResolverImpl) setting(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, ok, err := r.settingsRepo.Get(ctx, key)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read fee setting %s: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		r.logger.Warn("Ignoring malformed fee setting", "key", key, "value", raw, "error", err)
		return fallback, nil
	}
	return value, nil
}
