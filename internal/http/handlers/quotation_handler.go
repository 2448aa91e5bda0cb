package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

// QuotationService - операции над заявками, нужные хэндлеру.
type QuotationService interface {
	Create(ctx context.Context, requesterID uuid.UUID, in service.CreateQuotationInput) (*models.Quotation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuotationWithBids, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Quotation, error)
}

// AwardService - присуждение и закрытие заявок.
type AwardService interface {
	AwardBid(ctx context.Context, operatorID, quotationID, bidID uuid.UUID, commissionPercent decimal.Decimal) (*service.SettlementResult, error)
	CloseQuotation(ctx context.Context, operatorID, quotationID uuid.UUID) (*models.Quotation, error)
}

type QuotationHandler struct {
	quotations QuotationService
	awards     AwardService
}

func NewQuotationHandler(quotations QuotationService, awards AwardService) *QuotationHandler {
	return &QuotationHandler{quotations: quotations, awards: awards}
}

// CreateQuotationRequest - тело POST /quotations.
type CreateQuotationRequest struct {
	Category       string          `json:"category" binding:"required"`
	RequesterEmail string          `json:"requester_email" binding:"required"`
	Details        json.RawMessage `json:"details"`
}

// AwardRequest - тело POST /quotations/:id/award.
type AwardRequest struct {
	BidID             uuid.UUID       `json:"bid_id"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
}

// CreateQuotation POST /quotations
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req CreateQuotationRequest
	if !common.BindJSON(c, &req) {
		return
	}

	quotation, err := h.quotations.Create(c.Request.Context(), p.ID, service.CreateQuotationInput{
		Category:       req.Category,
		RequesterEmail: req.RequesterEmail,
		Details:        req.Details,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quotation)
}

// GetQuotation GET /quotations/:id
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id заявки")
		return
	}

	quotation, err := h.quotations.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

// ListQuotations GET /quotations?status=open
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	quotations, err := h.quotations.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quotations})
}

// AwardBid POST /quotations/:id/award
func (h *QuotationHandler) AwardBid(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	quotationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id заявки")
		return
	}

	var req AwardRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.awards.AwardBid(c.Request.Context(), p.ID, quotationID, req.BidID, req.CommissionPercent)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CloseQuotation POST /quotations/:id/close
func (h *QuotationHandler) CloseQuotation(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	quotationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id заявки")
		return
	}

	quotation, err := h.awards.CloseQuotation(c.Request.Context(), p.ID, quotationID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}
