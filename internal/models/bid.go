package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid описывает ставку поставщика по заявке.
type Bid struct {
	ID                 uuid.UUID           `db:"id" json:"id"`
	QuotationID        uuid.UUID           `db:"quotation_id" json:"quotation_id"`
	SupplierID         uuid.UUID           `db:"supplier_id" json:"supplier_id"`
	Price              decimal.Decimal     `db:"price" json:"price"`
	SettlementPrice    decimal.NullDecimal `db:"settlement_price" json:"settlement_price"`
	Notes              *string             `db:"notes" json:"notes,omitempty"`
	Status             string              `db:"status" json:"status"`
	PaymentStatus      string              `db:"payment_status" json:"payment_status"`
	DisbursementStatus string              `db:"disbursement_status" json:"disbursement_status"`
	EscrowReleaseAt    *time.Time          `db:"escrow_release_at" json:"escrow_release_at,omitempty"`
	PaymentReference   *string             `db:"payment_reference" json:"payment_reference,omitempty"`
	DisbursedBy        *uuid.UUID          `db:"disbursed_by" json:"disbursed_by,omitempty"`
	DisbursedAt        *time.Time          `db:"disbursed_at" json:"disbursed_at,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}

// MaturedBid - ставка с истёкшим сроком удержания вместе с контактами для уведомлений.
type MaturedBid struct {
	Bid
	SupplierEmail  string    `db:"supplier_email" json:"supplier_email"`
	RequesterID    uuid.UUID `db:"requester_id" json:"requester_id"`
	RequesterEmail string    `db:"requester_email" json:"requester_email"`
}

// MaturedCursor - позиция в выборке созревших ставок, упорядоченной по (escrow_release_at, id).
type MaturedCursor struct {
	ReleaseAt time.Time
	ID        uuid.UUID
}

// Cursor возвращает позицию ставки в выборке созревших.
func (b MaturedBid) Cursor() MaturedCursor {
	c := MaturedCursor{ID: b.ID}
	if b.EscrowReleaseAt != nil {
		c.ReleaseAt = *b.EscrowReleaseAt
	}
	return c
}

// CommissionRecord фиксирует комиссию, применённую к принятой ставке.
type CommissionRecord struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	BidID             uuid.UUID       `db:"bid_id" json:"bid_id"`
	QuotationID       uuid.UUID       `db:"quotation_id" json:"quotation_id"`
	CommissionPercent decimal.Decimal `db:"commission_percent" json:"commission_percent"`
	SettlementPrice   decimal.Decimal `db:"settlement_price" json:"settlement_price"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// BidEvent - запись append-only журнала переходов ставки.
type BidEvent struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BidID       uuid.UUID  `db:"bid_id" json:"bid_id"`
	QuotationID uuid.UUID  `db:"quotation_id" json:"quotation_id"`
	EventType   string     `db:"event_type" json:"event_type"`
	ActorID     *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	Payload     RawJSON    `db:"payload" json:"payload,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Supplier - справочные данные поставщика (регистрация вне сервиса).
type Supplier struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	Email       string    `db:"email" json:"email"`
}
