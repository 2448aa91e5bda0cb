package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// SupplierRepository читает справочник поставщиков.
type SupplierRepository struct {
	db *sqlx.DB
}

func NewSupplierRepository(db *sqlx.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// GetByID возвращает поставщика по идентификатору.
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	return common.GetOne[models.Supplier](ctx, r.db, ErrSupplierNotFound,
		`SELECT id, company_name, email FROM suppliers WHERE id = $1`, id)
}
