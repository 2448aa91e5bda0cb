package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

const maxNotesLength = 2000

// BidRepository описывает хранилище ставок.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]models.Bid, error)
	GetCommission(ctx context.Context, bidID uuid.UUID) (*models.CommissionRecord, error)
	ListEvents(ctx context.Context, bidID uuid.UUID) ([]models.BidEvent, error)
}

// BidDetails - ставка с комиссией и журналом переходов.
type BidDetails struct {
	models.Bid
	Commission *models.CommissionRecord `json:"commission,omitempty"`
	Events     []models.BidEvent        `json:"events"`
}

// BidService принимает ставки поставщиков.
type BidService struct {
	bids     BidRepository
	dispatch *Dispatcher
}

// NewBidService создаёт сервис ставок.
func NewBidService(bids BidRepository, dispatch *Dispatcher) *BidService {
	return &BidService{bids: bids, dispatch: dispatch}
}

// SubmitBid добавляет ставку поставщика в открытую заявку.
func (s *BidService) SubmitBid(ctx context.Context, quotationID, supplierID uuid.UUID, price decimal.Decimal, notes string) (*models.Bid, error) {
	amount, err := valueobject.NewPrice(price)
	if err != nil {
		return nil, err
	}

	bid := &models.Bid{
		QuotationID: quotationID,
		SupplierID:  supplierID,
		Price:       amount,
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		if utf8.RuneCountInString(notes) > maxNotesLength {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("комментарий не должен превышать %d символов", maxNotesLength))
		}
		bid.Notes = &notes
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		return nil, translate(err, ErrPersistence)
	}

	s.dispatch.NotifyOperators(ctx, models.EventNewBid, "Новая ставка",
		fmt.Sprintf("Поставщик %s предложил %s по заявке %s.", shortID(supplierID), formatMoney(bid.Price), shortID(quotationID)),
		bid.ID, models.ReferenceBid)

	return bid, nil
}

// GetBid возвращает ставку с комиссией (если она принята) и журналом событий.
func (s *BidService) GetBid(ctx context.Context, id uuid.UUID) (*BidDetails, error) {
	bid, err := s.bids.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	details := &BidDetails{Bid: *bid}

	commission, err := s.bids.GetCommission(ctx, id)
	switch {
	case err == nil:
		details.Commission = commission
	case !errors.Is(err, repository.ErrCommissionAbsent):
		return nil, translate(err, ErrPersistence)
	}

	events, err := s.bids.ListEvents(ctx, id)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}
	details.Events = events

	return details, nil
}

// ListBids возвращает ставки заявки по возрастанию цены.
func (s *BidService) ListBids(ctx context.Context, quotationID uuid.UUID) ([]models.Bid, error) {
	bids, err := s.bids.ListByQuotation(ctx, quotationID)
	return bids, translate(err, ErrPersistence)
}
