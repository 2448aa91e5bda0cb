package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, recipient_type, title, message, event_type, reference_id, reference_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_read, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		n.RecipientID, n.RecipientType, n.Title, n.Message, n.EventType, n.ReferenceID, n.ReferenceType,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}
	return nil
}

// GetByID возвращает уведомление по идентификатору.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return common.GetByID[models.Notification](ctx, r.db, "notifications", id, ErrNotificationNotFound)
}

// inboxFilter выбирает личные уведомления пользователя, а для операторов - ещё и общий канал.
func inboxFilter(recipientType string, recipientID uuid.UUID) (string, []interface{}) {
	if recipientType == models.RecipientOperator {
		return `recipient_type = 'operator' AND (recipient_id IS NULL OR recipient_id = $1)`, []interface{}{recipientID}
	}
	return `recipient_type = $2 AND recipient_id = $1`, []interface{}{recipientID, recipientType}
}

// List возвращает уведомления получателя с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, recipientType string, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	where, args := inboxFilter(recipientType, recipientID)
	query := `SELECT * FROM notifications WHERE ` + where
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("notification repository: list %w", err)
	}
	return notifications, nil
}

// MarkAsRead отмечает уведомление как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification repository: mark as read rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений получателя.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientType string, recipientID uuid.UUID) (int, error) {
	where, args := inboxFilter(recipientType, recipientID)

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE `+where+` AND is_read = FALSE`, args...); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}
	return count, nil
}
