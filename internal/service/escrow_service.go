package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/logger"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

// EscrowRepository ведёт оплату и выплату по принятым ставкам.
type EscrowRepository interface {
	CapturePayment(ctx context.Context, p repository.CaptureParams) (*models.Bid, error)
	ListMatured(ctx context.Context, now time.Time, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error)
	CompletePayment(ctx context.Context, bidID uuid.UUID, now time.Time) (bool, error)
	MarkDisbursed(ctx context.Context, bidID, operatorID uuid.UUID, now time.Time) (*models.Bid, error)
}

// DisputeLookup ищет спор по ставке.
type DisputeLookup interface {
	GetByBidID(ctx context.Context, bidID uuid.UUID) (*models.Dispute, error)
}

// QuotationReader читает заявку.
type QuotationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
}

// DisbursementResult - итог ручной выплаты. OpenDispute заполнен, если по ставке есть нерешённый спор.
// DisputeUnknown выставляется, когда наличие спора проверить не удалось.
type DisbursementResult struct {
	Bid            models.Bid      `json:"bid"`
	OpenDispute    *models.Dispute `json:"open_dispute,omitempty"`
	DisputeUnknown bool            `json:"dispute_unknown,omitempty"`
}

// EscrowService управляет удержанием средств и выплатой поставщику.
type EscrowService struct {
	escrow     EscrowRepository
	disputes   DisputeLookup
	quotations QuotationReader
	dispatch   *Dispatcher
	hold       time.Duration
	clock      Clock
	log        logrus.FieldLogger
}

// NewEscrowService создаёт сервис удержания средств.
func NewEscrowService(escrow EscrowRepository, disputes DisputeLookup, quotations QuotationReader, dispatch *Dispatcher, hold time.Duration) *EscrowService {
	return &EscrowService{
		escrow:     escrow,
		disputes:   disputes,
		quotations: quotations,
		dispatch:   dispatch,
		hold:       hold,
		clock:      systemClock,
		log:        logger.Component("escrow"),
	}
}

// SetClock подменяет источник времени.
func (s *EscrowService) SetClock(clock Clock) {
	s.clock = clock
}

// WithLogger подменяет логгер.
func (s *EscrowService) WithLogger(log logrus.FieldLogger) *EscrowService {
	s.log = log
	return s
}

// CapturePayment фиксирует оплату заказчика. Срок удержания отсчитывается от момента оплаты.
func (s *EscrowService) CapturePayment(ctx context.Context, requesterID, bidID uuid.UUID, reference string) (*models.Bid, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан идентификатор платежа")
	}

	bid, err := s.escrow.CapturePayment(ctx, repository.CaptureParams{
		BidID:       bidID,
		RequesterID: requesterID,
		Reference:   reference,
		ReleaseAt:   s.clock().Add(s.hold),
	})
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	s.dispatch.NotifyUser(ctx, models.RecipientSupplier, bid.SupplierID, models.EventPaymentCaptured,
		"Оплата получена",
		fmt.Sprintf("Заказчик оплатил заявку %s, средства удерживаются до завершения работ.", shortID(bid.QuotationID)),
		bid.ID, models.ReferenceBid)

	captured := *bid
	s.dispatch.Go(ctx, "письмо заказчику", logrus.Fields{"bid_id": bid.ID}, func(ctx context.Context) error {
		q, err := s.quotations.GetByID(ctx, captured.QuotationID)
		if err != nil {
			return err
		}
		s.dispatch.Email(ctx, q.RequesterEmail, paymentCapturedEmail(captured))
		return nil
	})

	return bid, nil
}

// ListMatured возвращает страницу ставок, у которых истёк срок удержания, начиная после after.
func (s *EscrowService) ListMatured(ctx context.Context, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error) {
	matured, err := s.escrow.ListMatured(ctx, s.clock(), after, limit)
	return matured, translate(err, ErrPersistence)
}

// SettleMatured переводит оплату в completed и уведомляет поставщика и операторов.
// Возвращает false, если ставку уже обработал другой исполнитель.
func (s *EscrowService) SettleMatured(ctx context.Context, bid models.MaturedBid) (bool, error) {
	completed, err := s.escrow.CompletePayment(ctx, bid.ID, s.clock())
	if err != nil {
		return false, translate(err, ErrPersistence)
	}
	if !completed {
		return false, nil
	}

	// спор только помечает уведомление оператора; сбой проверки не отменяет завершённую оплату
	dispute, known := s.disputeFor(ctx, bid.ID)

	s.dispatch.NotifyUser(ctx, models.RecipientSupplier, bid.SupplierID, models.EventEscrowReleased,
		"Срок удержания завершён",
		fmt.Sprintf("Срок удержания по ставке %s завершён. К выплате: %s.", shortID(bid.ID), formatMoney(bid.Price)),
		bid.ID, models.ReferenceBid)
	s.dispatch.Email(ctx, bid.SupplierEmail, escrowReleasedEmail(bid))

	message := fmt.Sprintf("Ставка %s: выплатить поставщику %s (оплачено заказчиком %s).",
		bid.ID, formatMoney(bid.Price), formatMoney(bid.SettlementPrice.Decimal))
	switch {
	case !known:
		message += " " + disputeUnknownNote
	case dispute != nil:
		message += fmt.Sprintf(" По ставке открыт спор %s.", dispute.ID)
	}
	s.dispatch.NotifyOperators(ctx, models.EventDisbursementNeeded, "Требуется ручная выплата", message, bid.ID, models.ReferenceBid)
	s.dispatch.EmailOperators(ctx, disbursementRequiredEmail(bid, dispute, known))

	return true, nil
}

// DisburseFunds фиксирует выплату поставщику оператором.
func (s *EscrowService) DisburseFunds(ctx context.Context, operatorID, bidID uuid.UUID) (*DisbursementResult, error) {
	bid, err := s.escrow.MarkDisbursed(ctx, bidID, operatorID, s.clock())
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	result := &DisbursementResult{Bid: *bid}
	var known bool
	result.OpenDispute, known = s.disputeFor(ctx, bidID)
	result.DisputeUnknown = !known

	s.dispatch.NotifyUser(ctx, models.RecipientSupplier, bid.SupplierID, models.EventFundsDisbursed,
		"Средства выплачены",
		fmt.Sprintf("Выплата %s по ставке %s отправлена.", formatMoney(bid.Price), shortID(bid.ID)),
		bid.ID, models.ReferenceBid)
	s.dispatch.EmailSupplier(ctx, bid.SupplierID, fundsDisbursedEmail(*bid))

	return result, nil
}

// OpenDispute возвращает нерешённый спор по ставке или nil.
func (s *EscrowService) OpenDispute(ctx context.Context, bidID uuid.UUID) (*models.Dispute, error) {
	if s.disputes == nil {
		return nil, nil
	}
	dispute, err := s.disputes.GetByBidID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, nil
		}
		return nil, translate(err, ErrPersistence)
	}
	if !dispute.IsOpen() {
		return nil, nil
	}
	return dispute, nil
}

// disputeFor - OpenDispute для уведомлений после уже зафиксированного перехода.
// Ошибка проверки логируется, known = false.
func (s *EscrowService) disputeFor(ctx context.Context, bidID uuid.UUID) (dispute *models.Dispute, known bool) {
	dispute, err := s.OpenDispute(ctx, bidID)
	if err != nil {
		s.log.WithError(err).WithField("bid_id", bidID).Warn("не удалось проверить спор по ставке")
		return nil, false
	}
	return dispute, true
}
