package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformSettings - параметры автоматического аукциона.
type PlatformSettings struct {
	AuctionEnabled    bool            `db:"auction_enabled" json:"auction_enabled"`
	CommissionPercent decimal.Decimal `db:"commission_percent" json:"commission_percent"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}
