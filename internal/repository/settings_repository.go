package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// SettingsRepository хранит единственную строку настроек платформы.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get возвращает текущие настройки аукциона.
func (r *SettingsRepository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	query := `SELECT auction_enabled, commission_percent, updated_at FROM platform_settings WHERE id`
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("settings repository: get %w", err)
	}
	return &settings, nil
}

// Update меняет только переданные поля; nil и невалидный NullDecimal оставляют значение как есть.
func (r *SettingsRepository) Update(ctx context.Context, auctionEnabled *bool, commission decimal.NullDecimal) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	query := `
		UPDATE platform_settings
		SET auction_enabled = COALESCE($1, auction_enabled),
		    commission_percent = COALESCE($2, commission_percent),
		    updated_at = NOW()
		WHERE id
		RETURNING auction_enabled, commission_percent, updated_at
	`
	if err := r.db.GetContext(ctx, &settings, query, auctionEnabled, commission); err != nil {
		return nil, fmt.Errorf("settings repository: update %w", err)
	}
	return &settings, nil
}
