package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusPending     = "pending"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
)

// Dispute - жалоба заказчика на принятую ставку.
type Dispute struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BidID     uuid.UUID `db:"bid_id" json:"bid_id"`
	FilerID   uuid.UUID `db:"filer_id" json:"filer_id"`
	AgainstID uuid.UUID `db:"against_id" json:"against_id"`
	Reason    string    `db:"reason" json:"reason"`
	Detail    string    `db:"detail" json:"detail"`
	Evidence  RawJSON   `db:"evidence" json:"evidence"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen сообщает, что спор ещё не решён.
func (d *Dispute) IsOpen() bool {
	return d.Status != DisputeStatusResolved
}
