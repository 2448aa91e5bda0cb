package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
)

const maxEvidenceItems = 20

// DisputeRepository описывает хранилище споров.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByBidID(ctx context.Context, bidID uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Dispute, error)
}

// FileDisputeInput - жалоба заказчика.
type FileDisputeInput struct {
	Reason   string
	Detail   string
	Evidence []string
}

// DisputeService принимает и ведёт споры по принятым ставкам.
type DisputeService struct {
	disputes DisputeRepository
	dispatch *Dispatcher
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeRepository, dispatch *Dispatcher) *DisputeService {
	return &DisputeService{disputes: disputes, dispatch: dispatch}
}

// FileDispute открывает спор по принятой ставке. Подать спор может только заказчик заявки.
func (s *DisputeService) FileDispute(ctx context.Context, filerID, bidID uuid.UUID, in FileDisputeInput) (*models.Dispute, error) {
	reason := strings.TrimSpace(in.Reason)
	detail := strings.TrimSpace(in.Detail)
	if reason == "" || detail == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "необходимо указать причину и описание спора")
	}
	if len(in.Evidence) > maxEvidenceItems {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("не более %d вложений", maxEvidenceItems))
	}

	evidence := make([]string, 0, len(in.Evidence))
	for _, item := range in.Evidence {
		if item = strings.TrimSpace(item); item != "" {
			evidence = append(evidence, item)
		}
	}
	raw, err := json.Marshal(evidence)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить вложения")
	}

	d := &models.Dispute{
		BidID:    bidID,
		FilerID:  filerID,
		Reason:   reason,
		Detail:   detail,
		Evidence: models.RawJSON(raw),
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		return nil, translate(err, ErrPersistence)
	}

	s.dispatch.NotifyOperators(ctx, models.EventDisputeFiled, "Новый спор",
		fmt.Sprintf("По ставке %s открыт спор: %s.", shortID(d.BidID), d.Reason),
		d.ID, models.ReferenceDispute)
	s.dispatch.EmailOperators(ctx, disputeFiledEmail(*d))

	return d, nil
}

// UpdateDisputeStatus переводит спор вперёд по цепочке статусов.
func (s *DisputeService) UpdateDisputeStatus(ctx context.Context, operatorID, disputeID uuid.UUID, status string) (*models.Dispute, error) {
	next, err := valueobject.NewDisputeStatus(status)
	if err != nil {
		return nil, err
	}

	d, err := s.disputes.UpdateStatus(ctx, disputeID, string(next), operatorID)
	if err != nil {
		return nil, translate(err, ErrPersistence)
	}

	message := fmt.Sprintf("Спор %s переведён в статус %s.", shortID(d.ID), d.Status)
	s.dispatch.NotifyUser(ctx, models.RecipientRequester, d.FilerID, models.EventDisputeStatusChange,
		"Статус спора изменён", message, d.ID, models.ReferenceDispute)
	s.dispatch.NotifyUser(ctx, models.RecipientSupplier, d.AgainstID, models.EventDisputeStatusChange,
		"Статус спора изменён", message, d.ID, models.ReferenceDispute)
	s.dispatch.EmailSupplier(ctx, d.AgainstID, disputeStatusEmail(*d))

	return d, nil
}

// GetDispute возвращает спор по идентификатору.
func (s *DisputeService) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, id)
	return d, translate(err, ErrPersistence)
}

// ListDisputes возвращает споры с необязательным фильтром по статусу.
func (s *DisputeService) ListDisputes(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	if status != "" {
		if _, err := valueobject.NewDisputeStatus(status); err != nil {
			return nil, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	disputes, err := s.disputes.List(ctx, status, limit, offset)
	return disputes, translate(err, ErrPersistence)
}

// DisputeForBid возвращает спор по ставке.
func (s *DisputeService) DisputeForBid(ctx context.Context, bidID uuid.UUID) (*models.Dispute, error) {
	d, err := s.disputes.GetByBidID(ctx, bidID)
	return d, translate(err, ErrPersistence)
}
