package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// SettingsRepository хранит параметры платформы.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Update(ctx context.Context, auctionEnabled *bool, commission decimal.NullDecimal) (*models.PlatformSettings, error)
}

// SettingsService управляет режимом аукциона и комиссией.
type SettingsService struct {
	repo SettingsRepository
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get возвращает текущие настройки.
func (s *SettingsService) Get(ctx context.Context) (*models.PlatformSettings, error) {
	settings, err := s.repo.Get(ctx)
	return settings, translate(err, ErrPersistence)
}

// Update меняет режим аукциона и/или процент комиссии. nil поля не меняются.
func (s *SettingsService) Update(ctx context.Context, auctionEnabled *bool, commissionPercent *decimal.Decimal) (*models.PlatformSettings, error) {
	var commission decimal.NullDecimal
	if commissionPercent != nil {
		pct, err := valueobject.NewCommissionPercent(*commissionPercent)
		if err != nil {
			return nil, err
		}
		commission = decimal.NullDecimal{Decimal: pct, Valid: true}
	}

	settings, err := s.repo.Update(ctx, auctionEnabled, commission)
	return settings, translate(err, ErrPersistence)
}
