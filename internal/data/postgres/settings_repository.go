package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/settings"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

const (
	getSettingQuery = `SELECT value FROM settings WHERE key = $1`

	upsertSettingQuery = `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
)

// SettingsRepository implements settings.Repository for PostgreSQL
type SettingsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSettingsRepository(logger *slog.Logger, db *persistence.PostgresDB) settings.Repository {
	return &SettingsRepository{querier: db.Pool(), logger: logger}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.querier.QueryRow(ctx, getSettingQuery, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		r.logger.Error("Failed to get setting", "key", key, "error", err)
		return "", false, fmt.Errorf("failed to get setting: %w", err)
	}
	return value, true, nil
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	if _, err := r.querier.Exec(ctx, upsertSettingQuery, key, value); err != nil {
		r.logger.Error("Failed to set setting", "key", key, "error", err)
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
