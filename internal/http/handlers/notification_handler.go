package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrowbid-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

// NotificationService - входящие уведомления участника.
type NotificationService interface {
	ListNotifications(ctx context.Context, p service.Principal, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, p service.Principal) error
	CountUnread(ctx context.Context, p service.Principal) (int, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func NewNotificationHandler(s NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: s}
}

// List GET /notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread") == "true"

	items, err := h.svc.ListNotifications(c.Request.Context(), p, limit, offset, unreadOnly)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// UnreadCount GET /notifications/unread/count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), p)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkAsRead PUT /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id уведомления")
		return
	}

	if err := h.svc.MarkAsRead(c.Request.Context(), id, p); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
