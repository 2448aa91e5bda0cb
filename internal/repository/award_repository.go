package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// AwardParams - входные данные присуждения.
type AwardParams struct {
	QuotationID uuid.UUID
	// BidID равен uuid.Nil для автоматического пути: выбирается самая дешёвая ставка.
	BidID             uuid.UUID
	CommissionPercent decimal.Decimal
	ReleaseAt         time.Time
	ActorID           *uuid.UUID
}

// AwardOutcome - зафиксированный результат присуждения.
type AwardOutcome struct {
	Quotation  models.Quotation
	Winner     models.Bid
	Rejected   []models.Bid
	Commission models.CommissionRecord
}

// CloseOutcome - результат снятия заявки без победителя.
type CloseOutcome struct {
	Quotation models.Quotation
	Rejected  []models.Bid
}

// AwardRepository выполняет переходы статуса заявки целиком в одной транзакции.
type AwardRepository struct {
	db *sqlx.DB
}

// NewAwardRepository создаёт экземпляр репозитория.
func NewAwardRepository(db *sqlx.DB) *AwardRepository {
	return &AwardRepository{db: db}
}

// Award принимает ставку, отклоняет остальные, переводит заявку в awarded и пишет комиссию.
// Строка заявки блокируется FOR UPDATE: конкурирующие вызовы выполняются по очереди,
// второй видит awarded и получает ErrQuotationAwarded.
func (r *AwardRepository) Award(ctx context.Context, p AwardParams) (*AwardOutcome, error) {
	var out AwardOutcome

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockOpenQuotation(ctx, tx, p.QuotationID); err != nil {
			return err
		}

		winner, err := lockCandidate(ctx, tx, p.QuotationID, p.BidID)
		if err != nil {
			return err
		}

		settlement, err := valueobject.NewSettlementPrice(winner.Price, p.CommissionPercent)
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &out.Winner, `
			UPDATE bids
			SET status = 'accepted', settlement_price = $2, escrow_release_at = $3, updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		`, winner.ID, settlement, p.ReleaseAt)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return ErrBidNotPending
			case common.IsUniqueViolation(err, constraintAcceptedBid):
				return ErrQuotationAwarded
			}
			return fmt.Errorf("award repository: accept bid %w", err)
		}

		out.Rejected = []models.Bid{}
		if err := tx.SelectContext(ctx, &out.Rejected, `
			UPDATE bids
			SET status = 'rejected', updated_at = NOW()
			WHERE quotation_id = $1 AND status = 'pending' AND id <> $2
			RETURNING *
		`, p.QuotationID, winner.ID); err != nil {
			return fmt.Errorf("award repository: reject bids %w", err)
		}

		err = tx.GetContext(ctx, &out.Quotation, `
			UPDATE quotations SET status = 'awarded', updated_at = NOW()
			WHERE id = $1 AND status = 'open'
			RETURNING *
		`, p.QuotationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQuotationAwarded
			}
			return fmt.Errorf("award repository: update quotation %w", err)
		}

		err = tx.GetContext(ctx, &out.Commission, `
			INSERT INTO commission_records (bid_id, quotation_id, commission_percent, settlement_price)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		`, winner.ID, p.QuotationID, p.CommissionPercent, settlement)
		if err != nil {
			if common.IsUniqueViolation(err, constraintCommissionBid) {
				return ErrQuotationAwarded
			}
			return fmt.Errorf("award repository: insert commission %w", err)
		}

		if err := appendBidEvent(ctx, tx, winner.ID, p.QuotationID, models.BidEventAccepted, p.ActorID, map[string]string{
			"commission_percent": p.CommissionPercent.String(),
			"settlement_price":   settlement.String(),
		}); err != nil {
			return err
		}

		return bidEventBatch(ctx, tx, bidIDs(out.Rejected), p.QuotationID, models.BidEventRejected, p.ActorID,
			map[string]string{"winner_bid_id": winner.ID.String()})
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Close снимает открытую заявку: все ставки в ожидании отклоняются, заявка становится closed.
func (r *AwardRepository) Close(ctx context.Context, quotationID, actorID uuid.UUID) (*CloseOutcome, error) {
	var out CloseOutcome

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockOpenQuotation(ctx, tx, quotationID); err != nil {
			return err
		}

		out.Rejected = []models.Bid{}
		if err := tx.SelectContext(ctx, &out.Rejected, `
			UPDATE bids SET status = 'rejected', updated_at = NOW()
			WHERE quotation_id = $1 AND status = 'pending'
			RETURNING *
		`, quotationID); err != nil {
			return fmt.Errorf("award repository: reject bids on close %w", err)
		}

		if err := tx.GetContext(ctx, &out.Quotation, `
			UPDATE quotations SET status = 'closed', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, quotationID); err != nil {
			return fmt.Errorf("award repository: close quotation %w", err)
		}

		return bidEventBatch(ctx, tx, bidIDs(out.Rejected), quotationID, models.BidEventRejected, &actorID,
			map[string]string{"reason": "quotation_closed"})
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// lockOpenQuotation блокирует строку заявки и проверяет, что она ещё открыта.
func lockOpenQuotation(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Quotation, error) {
	q, err := common.GetOne[models.Quotation](ctx, tx, ErrQuotationNotFound,
		`SELECT * FROM quotations WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, ErrQuotationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("award repository: lock quotation %w", err)
	}

	switch q.Status {
	case models.QuotationStatusAwarded:
		return nil, ErrQuotationAwarded
	case models.QuotationStatusClosed:
		return nil, ErrQuotationNotOpen
	}
	return q, nil
}

// lockCandidate блокирует выбранную ставку или, при bidID == uuid.Nil, самую дешёвую
// ставку в ожидании (при равной цене - самую раннюю).
func lockCandidate(ctx context.Context, tx *sqlx.Tx, quotationID, bidID uuid.UUID) (*models.Bid, error) {
	if bidID == uuid.Nil {
		bid, err := common.GetOne[models.Bid](ctx, tx, ErrNoPendingBids, `
			SELECT * FROM bids
			WHERE quotation_id = $1 AND status = 'pending'
			ORDER BY price, created_at, id
			LIMIT 1
			FOR UPDATE
		`, quotationID)
		if err != nil && !errors.Is(err, ErrNoPendingBids) {
			return nil, fmt.Errorf("award repository: select lowest bid %w", err)
		}
		return bid, err
	}

	bid, err := common.GetOne[models.Bid](ctx, tx, ErrBidNotFound,
		`SELECT * FROM bids WHERE id = $1 AND quotation_id = $2 FOR UPDATE`, bidID, quotationID)
	if err != nil {
		if errors.Is(err, ErrBidNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("award repository: lock bid %w", err)
	}
	if bid.Status != models.BidStatusPending {
		return nil, ErrBidNotPending
	}
	return bid, nil
}

func bidIDs(bids []models.Bid) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ID)
	}
	return ids
}
