package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// BidRepository отвечает за ставки поставщиков.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт экземпляр репозитория.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create добавляет ставку в статусе pending. Заявка блокируется FOR SHARE,
// поэтому вставка не может пересечься с присуждением той же заявки.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM quotations WHERE id = $1 FOR SHARE`, bid.QuotationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQuotationNotFound
			}
			return fmt.Errorf("bid repository: lock quotation %w", err)
		}
		if status != models.QuotationStatusOpen {
			return ErrQuotationNotOpen
		}

		query := `
			INSERT INTO bids (quotation_id, supplier_id, price, notes)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		`
		if err := tx.GetContext(ctx, bid, query, bid.QuotationID, bid.SupplierID, bid.Price, bid.Notes); err != nil {
			return fmt.Errorf("bid repository: create %w", err)
		}

		actor := bid.SupplierID
		return appendBidEvent(ctx, tx, bid.ID, bid.QuotationID, models.BidEventSubmitted, &actor,
			map[string]string{"price": bid.Price.String()})
	})
}

// GetByID возвращает ставку по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return common.GetByID[models.Bid](ctx, r.db, "bids", id, ErrBidNotFound)
}

// ListByQuotation возвращает все ставки заявки, дешёвые первыми.
func (r *BidRepository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `SELECT * FROM bids WHERE quotation_id = $1 ORDER BY price, created_at, id`
	if err := r.db.SelectContext(ctx, &bids, query, quotationID); err != nil {
		return nil, fmt.Errorf("bid repository: list by quotation %w", err)
	}
	return bids, nil
}

// GetCommission возвращает запись о комиссии принятой ставки.
func (r *BidRepository) GetCommission(ctx context.Context, bidID uuid.UUID) (*models.CommissionRecord, error) {
	record, err := common.GetOne[models.CommissionRecord](ctx, r.db, ErrCommissionAbsent,
		`SELECT * FROM commission_records WHERE bid_id = $1`, bidID)
	if err != nil && !errors.Is(err, ErrCommissionAbsent) {
		return nil, fmt.Errorf("bid repository: get commission %w", err)
	}
	return record, err
}

// ListEvents возвращает журнал переходов ставки в хронологическом порядке.
func (r *BidRepository) ListEvents(ctx context.Context, bidID uuid.UUID) ([]models.BidEvent, error) {
	events := []models.BidEvent{}
	query := `SELECT * FROM bid_events WHERE bid_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &events, query, bidID); err != nil {
		return nil, fmt.Errorf("bid repository: list events %w", err)
	}
	return events, nil
}
