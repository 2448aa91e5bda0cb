package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы получателей уведомлений.
const (
	RecipientSupplier  = "supplier"
	RecipientRequester = "requester"
	RecipientOperator  = "operator"
)

// Типы событий уведомлений.
const (
	EventNewBid              = "new_bid"
	EventBidAccepted         = "bid_accepted"
	EventBidRejected         = "bid_rejected"
	EventQuotationAwarded    = "quotation_awarded"
	EventPaymentCaptured     = "payment_captured"
	EventEscrowReleased      = "escrow_released"
	EventDisbursementNeeded  = "disbursement_required"
	EventFundsDisbursed      = "funds_disbursed"
	EventDisputeFiled        = "dispute_filed"
	EventDisputeStatusChange = "dispute_status_updated"
	EventQuotationClosed     = "quotation_closed"
)

// Типы сущностей, на которые ссылается уведомление.
const (
	ReferenceBid       = "bid"
	ReferenceQuotation = "quotation"
	ReferenceDispute   = "dispute"
)

// Notification - сохранённое in-app уведомление.
type Notification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	RecipientID   *uuid.UUID `db:"recipient_id" json:"recipient_id,omitempty"`
	RecipientType string     `db:"recipient_type" json:"recipient_type"`
	Title         string     `db:"title" json:"title"`
	Message       string     `db:"message" json:"message"`
	EventType     string     `db:"event_type" json:"event_type"`
	ReferenceID   *uuid.UUID `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *string    `db:"reference_type" json:"reference_type,omitempty"`
	IsRead        bool       `db:"is_read" json:"is_read"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// NotificationRequest - запрос на доставку уведомления.
// RecipientID равен nil для общего канала операторов.
type NotificationRequest struct {
	RecipientID   *uuid.UUID
	RecipientType string
	Title         string
	Message       string
	EventType     string
	ReferenceID   uuid.UUID
	ReferenceType string
}

// Email - письмо для почтового канала.
type Email struct {
	Subject string
	HTML    string
}
