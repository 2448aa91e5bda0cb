package service

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
)

// QuotationRepository описывает хранилище заявок.
type QuotationRepository interface {
	Create(ctx context.Context, q *models.Quotation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Quotation, error)
}

// BidLister возвращает ставки заявки.
type BidLister interface {
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]models.Bid, error)
}

// CreateQuotationInput - данные новой заявки.
type CreateQuotationInput struct {
	Category       string
	RequesterEmail string
	Details        json.RawMessage
}

// QuotationService управляет заявками заказчиков.
type QuotationService struct {
	quotations QuotationRepository
	bids       BidLister
}

// NewQuotationService создаёт сервис заявок.
func NewQuotationService(quotations QuotationRepository, bids BidLister) *QuotationService {
	return &QuotationService{quotations: quotations, bids: bids}
}

// Create открывает заявку от имени заказчика.
func (s *QuotationService) Create(ctx context.Context, requesterID uuid.UUID, in CreateQuotationInput) (*models.Quotation, error) {
	category, err := valueobject.NewQuotationCategory(in.Category)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.RequesterEmail)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный email заказчика")
	}

	if len(in.Details) > 0 && !json.Valid(in.Details) {
		return nil, apperror.New(apperror.ErrCodeValidation, "детали заявки должны быть JSON")
	}

	q := &models.Quotation{
		Category:       string(category),
		RequesterID:    requesterID,
		RequesterEmail: email,
		Details:        models.RawJSON(in.Details),
	}
	if err := s.quotations.Create(ctx, q); err != nil {
		return nil, translate(err, ErrPersistence)
	}
	return q, nil
}

// Get возвращает заявку вместе со ставками, отсортированными по цене.
func (s *QuotationService) Get(ctx context.Context, id uuid.UUID) (*models.QuotationWithBids, error) {
	q, err := s.quotations.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	bids, err := s.bids.ListByQuotation(ctx, id)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	return &models.QuotationWithBids{Quotation: *q, Bids: bids}, nil
}

// List возвращает заявки с фильтром по статусу.
func (s *QuotationService) List(ctx context.Context, status string, limit, offset int) ([]models.Quotation, error) {
	if status != "" {
		if _, ok := models.ValidQuotationStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	quotations, err := s.quotations.List(ctx, status, limit, offset)
	return quotations, translate(err, ErrPersistence)
}
