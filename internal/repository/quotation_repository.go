package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// QuotationRepository отвечает за хранение заявок.
type QuotationRepository struct {
	db *sqlx.DB
}

// NewQuotationRepository создаёт экземпляр репозитория.
func NewQuotationRepository(db *sqlx.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// Create сохраняет новую заявку в статусе open.
func (r *QuotationRepository) Create(ctx context.Context, q *models.Quotation) error {
	details := q.Details
	if len(details) == 0 {
		details = models.RawJSON(`{}`)
	}

	query := `
		INSERT INTO quotations (category, requester_id, requester_email, details, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id, status, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, q.Category, q.RequesterID, q.RequesterEmail, details).
		Scan(&q.ID, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return fmt.Errorf("quotation repository: create %w", err)
	}
	q.Details = details
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	return common.GetByID[models.Quotation](ctx, r.db, "quotations", id, ErrQuotationNotFound)
}

// List возвращает заявки, опционально отфильтрованные по статусу.
func (r *QuotationRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Quotation, error) {
	query := `SELECT * FROM quotations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	quotations := []models.Quotation{}
	if err := r.db.SelectContext(ctx, &quotations, query, args...); err != nil {
		return nil, fmt.Errorf("quotation repository: list %w", err)
	}
	return quotations, nil
}

// ListAuctionCandidates возвращает открытые заявки старше createdBefore, у которых есть ставки в ожидании.
func (r *QuotationRepository) ListAuctionCandidates(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT q.id FROM quotations q
		WHERE q.status = 'open'
		  AND q.created_at <= $1
		  AND EXISTS (SELECT 1 FROM bids b WHERE b.quotation_id = q.id AND b.status = 'pending')
		ORDER BY q.created_at
		LIMIT $2
	`
	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, createdBefore, limit); err != nil {
		return nil, fmt.Errorf("quotation repository: list auction candidates %w", err)
	}
	return ids, nil
}
