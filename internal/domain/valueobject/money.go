package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
)

// MoneyPrecision - число знаков после запятой для цен в хранилище.
const MoneyPrecision = 4

var (
	hundred = decimal.NewFromInt(100)

	// maxAmount - верхняя граница NUMERIC(14,4) для цен (не включительно).
	maxAmount = decimal.New(1, 10)
	// maxCommissionPercent - верхняя граница NUMERIC(7,4) (не включительно).
	maxCommissionPercent = decimal.NewFromInt(1000)
)

// NewPrice округляет цену до MoneyPrecision и проверяет, что результат положителен
// и помещается в колонку цены.
func NewPrice(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(MoneyPrecision)
	if !rounded.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "цена должна быть положительной")
	}
	if rounded.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "цена слишком велика")
	}
	return rounded, nil
}

// NewCommissionPercent проверяет процент комиссии: положителен, меньше 1000,
// не больше MoneyPrecision знаков после запятой.
func NewCommissionPercent(pct decimal.Decimal) (decimal.Decimal, error) {
	if !pct.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент комиссии должен быть положительным")
	}
	if pct.GreaterThanOrEqual(maxCommissionPercent) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент комиссии должен быть меньше 1000")
	}
	if !pct.Equal(pct.Round(MoneyPrecision)) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент комиссии допускает не более 4 знаков после запятой")
	}
	return pct, nil
}

// SettlementPrice считает итоговую цену для заказчика: price * (1 + pct/100).
func SettlementPrice(price, commissionPercent decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1).Add(commissionPercent.Div(hundred))
	return price.Mul(multiplier).Round(MoneyPrecision)
}

// NewSettlementPrice - SettlementPrice с проверкой, что итог помещается в колонку цены.
func NewSettlementPrice(price, commissionPercent decimal.Decimal) (decimal.Decimal, error) {
	settlement := SettlementPrice(price, commissionPercent)
	if settlement.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "итоговая цена с комиссией слишком велика")
	}
	return settlement, nil
}
