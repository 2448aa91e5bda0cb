package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, recipientType string, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, recipientType string, recipientID uuid.UUID) (int, error)
}

// Publisher рассылает события подключённым WebSocket клиентам.
type Publisher interface {
	PublishToUser(userID uuid.UUID, event string, data any) error
	PublishToRole(role string, event string, data any) error
}

// Principal - аутентифицированный участник запроса.
type Principal struct {
	ID   uuid.UUID
	Role string
}

// NotificationService сохраняет уведомления и отдаёт их получателям.
type NotificationService struct {
	repo      NotificationRepository
	publisher Publisher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetPublisher подключает realtime канал.
func (s *NotificationService) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

// Notify сохраняет уведомление и пушит его подключённым клиентам.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) error {
	notification := &models.Notification{
		RecipientID:   req.RecipientID,
		RecipientType: req.RecipientType,
		Title:         req.Title,
		Message:       req.Message,
		EventType:     req.EventType,
	}
	if req.ReferenceID != uuid.Nil {
		refID := req.ReferenceID
		notification.ReferenceID = &refID
	}
	if req.ReferenceType != "" {
		refType := req.ReferenceType
		notification.ReferenceType = &refType
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	if notification.RecipientID == nil {
		return s.publisher.PublishToRole(notification.RecipientType, notification.EventType, notification)
	}
	return s.publisher.PublishToUser(*notification.RecipientID, notification.EventType, notification)
}

// ListNotifications возвращает уведомления участника.
func (s *NotificationService) ListNotifications(ctx context.Context, p Principal, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.List(ctx, p.Role, p.ID, limit, offset, unreadOnly)
	return notifications, translate(err, ErrPersistence)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, p Principal) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translate(err, ErrPersistence)
	}

	if !canRead(notification, p) {
		return ErrNotificationNotFound
	}

	return translate(s.repo.MarkAsRead(ctx, id), ErrPersistence)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, p Principal) (int, error) {
	count, err := s.repo.CountUnread(ctx, p.Role, p.ID)
	return count, translate(err, ErrPersistence)
}

func canRead(n *models.Notification, p Principal) bool {
	if n.RecipientType != p.Role {
		return false
	}
	if n.RecipientID == nil {
		return p.Role == models.RecipientOperator
	}
	return *n.RecipientID == p.ID
}
