package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

// AwardRepository выполняет присуждение и закрытие заявки одной транзакцией.
type AwardRepository interface {
	Award(ctx context.Context, p repository.AwardParams) (*repository.AwardOutcome, error)
	Close(ctx context.Context, quotationID, actorID uuid.UUID) (*repository.CloseOutcome, error)
}

// SettlementResult - итог присуждения заявки.
type SettlementResult struct {
	QuotationID       uuid.UUID       `json:"quotation_id"`
	WinningBidID      uuid.UUID       `json:"winning_bid_id"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	QuotedPrice       decimal.Decimal `json:"quoted_price"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	SettlementPrice   decimal.Decimal `json:"settlement_price"`
	EscrowReleaseAt   time.Time       `json:"escrow_release_at"`
	RejectedBidIDs    []uuid.UUID     `json:"rejected_bid_ids"`
}

// AwardService выбирает победителя заявки.
type AwardService struct {
	awards   AwardRepository
	dispatch *Dispatcher
	hold     time.Duration
	clock    Clock
}

// NewAwardService создаёт сервис присуждения. hold - срок удержания средств.
func NewAwardService(awards AwardRepository, dispatch *Dispatcher, hold time.Duration) *AwardService {
	return &AwardService{awards: awards, dispatch: dispatch, hold: hold, clock: systemClock}
}

// SetClock подменяет источник времени.
func (s *AwardService) SetClock(clock Clock) {
	s.clock = clock
}

// AwardBid вручную присуждает заявку выбранной ставке.
func (s *AwardService) AwardBid(ctx context.Context, operatorID, quotationID, bidID uuid.UUID, commissionPercent decimal.Decimal) (*SettlementResult, error) {
	if bidID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указана ставка")
	}
	actor := operatorID
	return s.award(ctx, quotationID, bidID, commissionPercent, &actor)
}

// AwardLowest присуждает заявку самой дешёвой ставке в ожидании.
// При равной цене побеждает более ранняя ставка.
func (s *AwardService) AwardLowest(ctx context.Context, quotationID uuid.UUID, commissionPercent decimal.Decimal) (*SettlementResult, error) {
	return s.award(ctx, quotationID, uuid.Nil, commissionPercent, nil)
}

func (s *AwardService) award(ctx context.Context, quotationID, bidID uuid.UUID, commissionPercent decimal.Decimal, actor *uuid.UUID) (*SettlementResult, error) {
	pct, err := valueobject.NewCommissionPercent(commissionPercent)
	if err != nil {
		return nil, err
	}

	outcome, err := s.awards.Award(ctx, repository.AwardParams{
		QuotationID:       quotationID,
		BidID:             bidID,
		CommissionPercent: pct,
		ReleaseAt:         s.clock().Add(s.hold),
		ActorID:           actor,
	})
	if err != nil {
		return nil, translate(err, ErrAwardFailed)
	}

	s.notifyAwarded(ctx, outcome)

	result := &SettlementResult{
		QuotationID:       outcome.Quotation.ID,
		WinningBidID:      outcome.Winner.ID,
		SupplierID:        outcome.Winner.SupplierID,
		QuotedPrice:       outcome.Winner.Price,
		CommissionPercent: outcome.Commission.CommissionPercent,
		SettlementPrice:   outcome.Commission.SettlementPrice,
		RejectedBidIDs:    make([]uuid.UUID, 0, len(outcome.Rejected)),
	}
	if outcome.Winner.EscrowReleaseAt != nil {
		result.EscrowReleaseAt = *outcome.Winner.EscrowReleaseAt
	}
	for _, b := range outcome.Rejected {
		result.RejectedBidIDs = append(result.RejectedBidIDs, b.ID)
	}
	return result, nil
}

func (s *AwardService) notifyAwarded(ctx context.Context, outcome *repository.AwardOutcome) {
	winner := outcome.Winner
	s.dispatch.NotifyUser(ctx, models.RecipientSupplier, winner.SupplierID, models.EventBidAccepted,
		"Ставка принята",
		fmt.Sprintf("Ваша ставка %s по заявке %s принята.", formatMoney(winner.Price), shortID(winner.QuotationID)),
		winner.ID, models.ReferenceBid)
	s.dispatch.EmailSupplier(ctx, winner.SupplierID, bidAcceptedEmail(winner))

	for _, b := range outcome.Rejected {
		s.dispatch.NotifyUser(ctx, models.RecipientSupplier, b.SupplierID, models.EventBidRejected,
			"Ставка отклонена",
			fmt.Sprintf("По заявке %s выбрана другая ставка.", shortID(b.QuotationID)),
			b.ID, models.ReferenceBid)
		s.dispatch.EmailSupplier(ctx, b.SupplierID, bidRejectedEmail(b))
	}

	q := outcome.Quotation
	s.dispatch.NotifyUser(ctx, models.RecipientRequester, q.RequesterID, models.EventQuotationAwarded,
		"Исполнитель выбран",
		fmt.Sprintf("Итоговая стоимость заявки %s: %s.", shortID(q.ID), formatMoney(outcome.Commission.SettlementPrice)),
		q.ID, models.ReferenceQuotation)
	s.dispatch.Email(ctx, q.RequesterEmail, quotationAwardedEmail(q, outcome.Commission.SettlementPrice))
}

// CloseQuotation снимает открытую заявку без победителя и отклоняет её ставки.
func (s *AwardService) CloseQuotation(ctx context.Context, operatorID, quotationID uuid.UUID) (*models.Quotation, error) {
	outcome, err := s.awards.Close(ctx, quotationID, operatorID)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	for _, b := range outcome.Rejected {
		s.dispatch.NotifyUser(ctx, models.RecipientSupplier, b.SupplierID, models.EventBidRejected,
			"Ставка отклонена",
			fmt.Sprintf("Заявка %s закрыта без выбора исполнителя.", shortID(b.QuotationID)),
			b.ID, models.ReferenceBid)
	}

	q := outcome.Quotation
	s.dispatch.NotifyUser(ctx, models.RecipientRequester, q.RequesterID, models.EventQuotationClosed,
		"Заявка закрыта", fmt.Sprintf("Заявка %s закрыта.", shortID(q.ID)),
		q.ID, models.ReferenceQuotation)
	s.dispatch.Email(ctx, q.RequesterEmail, quotationClosedEmail(q))

	return &q, nil
}
