package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// CaptureParams - данные подтверждённой оплаты заказчика.
type CaptureParams struct {
	BidID       uuid.UUID
	RequesterID uuid.UUID
	Reference   string
	ReleaseAt   time.Time
}

// EscrowRepository ведёт статусы оплаты и выплаты по принятым ставкам.
type EscrowRepository struct {
	db *sqlx.DB
}

// NewEscrowRepository создаёт экземпляр репозитория.
func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

type bidWithRequester struct {
	models.Bid
	RequesterID uuid.UUID `db:"requester_id"`
}

// CapturePayment переводит оплату pending -> in_escrow и задаёт срок освобождения.
func (r *EscrowRepository) CapturePayment(ctx context.Context, p CaptureParams) (*models.Bid, error) {
	var updated models.Bid

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := common.GetOne[bidWithRequester](ctx, tx, ErrBidNotFound, `
			SELECT b.*, q.requester_id
			FROM bids b JOIN quotations q ON q.id = b.quotation_id
			WHERE b.id = $1
			FOR UPDATE OF b
		`, p.BidID)
		if err != nil {
			if errors.Is(err, ErrBidNotFound) {
				return err
			}
			return fmt.Errorf("escrow repository: lock bid %w", err)
		}

		switch {
		case current.Status != models.BidStatusAccepted:
			return ErrBidNotAccepted
		case current.RequesterID != p.RequesterID:
			return ErrNotRequester
		case current.PaymentStatus != models.PaymentStatusPending:
			return ErrPaymentNotPending
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE bids
			SET payment_status = 'in_escrow', payment_reference = $2, escrow_release_at = $3, updated_at = NOW()
			WHERE id = $1 AND payment_status = 'pending'
			RETURNING *
		`, p.BidID, p.Reference, p.ReleaseAt); err != nil {
			return fmt.Errorf("escrow repository: capture %w", err)
		}

		actor := p.RequesterID
		return appendBidEvent(ctx, tx, updated.ID, updated.QuotationID, models.BidEventPaymentCaptured, &actor,
			map[string]string{"reference": p.Reference, "release_at": p.ReleaseAt.UTC().Format(time.RFC3339)})
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// ListMatured возвращает ставки in_escrow, у которых срок удержания истёк к моменту now,
// в порядке (escrow_release_at, id). Если after задан, выборка начинается строго после него.
func (r *EscrowRepository) ListMatured(ctx context.Context, now time.Time, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error) {
	args := []interface{}{now, limit}
	keyset := ""
	if after != nil {
		keyset = "AND (b.escrow_release_at, b.id) > ($3::timestamptz, $4::uuid)"
		args = append(args, after.ReleaseAt, after.ID)
	}

	query := `
		SELECT b.*, s.email AS supplier_email, q.requester_id, q.requester_email
		FROM bids b
		JOIN suppliers s ON s.id = b.supplier_id
		JOIN quotations q ON q.id = b.quotation_id
		WHERE b.payment_status = 'in_escrow' AND b.escrow_release_at <= $1 ` + keyset + `
		ORDER BY b.escrow_release_at, b.id
		LIMIT $2
	`
	matured := []models.MaturedBid{}
	if err := r.db.SelectContext(ctx, &matured, query, args...); err != nil {
		return nil, fmt.Errorf("escrow repository: list matured %w", err)
	}
	return matured, nil
}

// CompletePayment выполняет CAS in_escrow -> completed. Возвращает false, если ставку уже
// обработал другой исполнитель или срок ещё не истёк.
func (r *EscrowRepository) CompletePayment(ctx context.Context, bidID uuid.UUID, now time.Time) (bool, error) {
	completed := false

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var quotationID uuid.UUID
		err := tx.GetContext(ctx, &quotationID, `
			UPDATE bids SET payment_status = 'completed', updated_at = NOW()
			WHERE id = $1 AND payment_status = 'in_escrow' AND escrow_release_at <= $2
			RETURNING quotation_id
		`, bidID, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("escrow repository: complete payment %w", err)
		}

		completed = true
		return appendBidEvent(ctx, tx, bidID, quotationID, models.BidEventPaymentCompleted, nil, nil)
	})
	if err != nil {
		return false, err
	}

	return completed, nil
}

// MarkDisbursed фиксирует ручную выплату поставщику. Проверки и обновление выполняются под
// блокировкой строки, повторный вызов получает ErrAlreadyDisbursed.
func (r *EscrowRepository) MarkDisbursed(ctx context.Context, bidID, operatorID uuid.UUID, now time.Time) (*models.Bid, error) {
	var updated models.Bid

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := common.GetOne[models.Bid](ctx, tx, ErrBidNotFound, `SELECT * FROM bids WHERE id = $1 FOR UPDATE`, bidID)
		if err != nil {
			if errors.Is(err, ErrBidNotFound) {
				return err
			}
			return fmt.Errorf("escrow repository: lock bid %w", err)
		}

		if current.DisbursementStatus == models.DisbursementStatusDisbursed {
			return ErrAlreadyDisbursed
		}
		if current.PaymentStatus != models.PaymentStatusCompleted {
			return ErrPaymentNotCompleted
		}

		err = tx.GetContext(ctx, &updated, `
			UPDATE bids
			SET disbursement_status = 'disbursed', disbursed_by = $2, disbursed_at = $3, updated_at = NOW()
			WHERE id = $1 AND disbursement_status = 'pending'
			RETURNING *
		`, bidID, operatorID, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAlreadyDisbursed
			}
			return fmt.Errorf("escrow repository: mark disbursed %w", err)
		}

		return appendBidEvent(ctx, tx, updated.ID, updated.QuotationID, models.BidEventDisbursed, &operatorID, nil)
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}
