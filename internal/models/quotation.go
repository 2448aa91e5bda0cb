package models

import (
	"time"

	"github.com/google/uuid"
)

// Quotation описывает заявку на услугу, открытую для ставок поставщиков.
type Quotation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Category       string    `db:"category" json:"category"`
	RequesterID    uuid.UUID `db:"requester_id" json:"requester_id"`
	RequesterEmail string    `db:"requester_email" json:"requester_email"`
	Details        RawJSON   `db:"details" json:"details,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen сообщает, принимает ли заявка ставки.
func (q *Quotation) IsOpen() bool {
	return q.Status == QuotationStatusOpen
}

// QuotationWithBids используется в read-model ответах.
type QuotationWithBids struct {
	Quotation
	Bids []Bid `json:"bids"`
}
