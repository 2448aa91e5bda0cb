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

// DisputeService - работа со спорами.
type DisputeService interface {
	FileDispute(ctx context.Context, filerID, bidID uuid.UUID, in service.FileDisputeInput) (*models.Dispute, error)
	UpdateDisputeStatus(ctx context.Context, operatorID, disputeID uuid.UUID, status string) (*models.Dispute, error)
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListDisputes(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
}

type DisputeHandler struct {
	svc DisputeService
}

func NewDisputeHandler(s DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: s}
}

// FileDisputeRequest - тело POST /bids/:id/disputes.
type FileDisputeRequest struct {
	Reason   string   `json:"reason" binding:"required"`
	Detail   string   `json:"detail" binding:"required"`
	Evidence []string `json:"evidence"`
}

// UpdateDisputeStatusRequest - тело PUT /disputes/:id/status.
type UpdateDisputeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// FileDispute POST /bids/:id/disputes
func (h *DisputeHandler) FileDispute(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id ставки")
		return
	}

	var req FileDisputeRequest
	if !common.BindJSON(c, &req) {
		return
	}

	dispute, err := h.svc.FileDispute(c.Request.Context(), p.ID, bidID, service.FileDisputeInput{
		Reason:   req.Reason,
		Detail:   req.Detail,
		Evidence: req.Evidence,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetDispute GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id спора")
		return
	}

	dispute, err := h.svc.GetDispute(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// ListDisputes GET /disputes?status=pending
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListDisputes(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": disputes})
}

// UpdateStatus PUT /disputes/:id/status
func (h *DisputeHandler) UpdateStatus(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id спора")
		return
	}

	var req UpdateDisputeStatusRequest
	if !common.BindJSON(c, &req) {
		return
	}

	dispute, err := h.svc.UpdateDisputeStatus(c.Request.Context(), p.ID, id, req.Status)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
