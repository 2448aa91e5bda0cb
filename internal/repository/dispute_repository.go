package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// DisputeRepository отвечает за споры по принятым ставкам.
type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор. Ставка блокируется FOR SHARE, уникальность по bid_id
// дополнительно гарантирует ограничение disputes_bid_id_key.
// AgainstID заполняется идентификатором поставщика ставки.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	evidence := d.Evidence
	if len(evidence) == 0 {
		evidence = models.RawJSON(`[]`)
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		bid, err := common.GetOne[bidWithRequester](ctx, tx, ErrBidNotFound, `
			SELECT b.*, q.requester_id
			FROM bids b JOIN quotations q ON q.id = b.quotation_id
			WHERE b.id = $1
			FOR SHARE OF b
		`, d.BidID)
		if err != nil {
			if errors.Is(err, ErrBidNotFound) {
				return err
			}
			return fmt.Errorf("dispute repository: lock bid %w", err)
		}

		if bid.Status != models.BidStatusAccepted {
			return ErrBidNotAccepted
		}
		if bid.RequesterID != d.FilerID {
			return ErrNotRequester
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM disputes WHERE bid_id = $1)`, d.BidID); err != nil {
			return fmt.Errorf("dispute repository: check existing %w", err)
		}
		if exists {
			return ErrDisputeExists
		}

		err = tx.GetContext(ctx, d, `
			INSERT INTO disputes (bid_id, filer_id, against_id, reason, detail, evidence, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending')
			RETURNING *
		`, d.BidID, d.FilerID, bid.SupplierID, d.Reason, d.Detail, evidence)
		if err != nil {
			if common.IsUniqueViolation(err, constraintDisputePerBid) {
				return ErrDisputeExists
			}
			return fmt.Errorf("dispute repository: create %w", err)
		}

		return appendBidEvent(ctx, tx, bid.ID, bid.QuotationID, models.BidEventDisputeFiled, &d.FilerID,
			map[string]string{"dispute_id": d.ID.String()})
	})
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetByBidID возвращает спор по ставке.
func (r *DisputeRepository) GetByBidID(ctx context.Context, bidID uuid.UUID) (*models.Dispute, error) {
	dispute, err := common.GetOne[models.Dispute](ctx, r.db, ErrDisputeNotFound, `SELECT * FROM disputes WHERE bid_id = $1`, bidID)
	if err != nil && !errors.Is(err, ErrDisputeNotFound) {
		return nil, fmt.Errorf("dispute repository: get by bid %w", err)
	}
	return dispute, err
}

// List возвращает споры с необязательным фильтром по статусу.
func (r *DisputeRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	query := `SELECT * FROM disputes`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list %w", err)
	}
	return disputes, nil
}

// UpdateStatus меняет статус спора только вперёд по цепочке pending -> under_review -> resolved.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Dispute, error) {
	var updated models.Dispute

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := common.GetOne[models.Dispute](ctx, tx, ErrDisputeNotFound, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, ErrDisputeNotFound) {
				return err
			}
			return fmt.Errorf("dispute repository: lock dispute %w", err)
		}

		if !valueobject.DisputeStatus(current.Status).CanTransitionTo(valueobject.DisputeStatus(status)) {
			return ErrInvalidDisputeTransition
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE disputes SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, id, status); err != nil {
			return fmt.Errorf("dispute repository: update status %w", err)
		}

		var quotationID uuid.UUID
		if err := tx.GetContext(ctx, &quotationID, `SELECT quotation_id FROM bids WHERE id = $1`, updated.BidID); err != nil {
			return fmt.Errorf("dispute repository: bid quotation %w", err)
		}

		return appendBidEvent(ctx, tx, updated.BidID, quotationID, models.BidEventDisputeStatusChanged, &actorID,
			map[string]string{"dispute_id": id.String(), "from": current.Status, "to": status})
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}
