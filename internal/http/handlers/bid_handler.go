package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

// BidService - приём и чтение ставок.
type BidService interface {
	SubmitBid(ctx context.Context, quotationID, supplierID uuid.UUID, price decimal.Decimal, notes string) (*models.Bid, error)
	GetBid(ctx context.Context, id uuid.UUID) (*service.BidDetails, error)
}

// EscrowService - оплата и выплата по принятой ставке.
type EscrowService interface {
	CapturePayment(ctx context.Context, requesterID, bidID uuid.UUID, reference string) (*models.Bid, error)
	DisburseFunds(ctx context.Context, operatorID, bidID uuid.UUID) (*service.DisbursementResult, error)
}

type BidHandler struct {
	bids   BidService
	escrow EscrowService
}

func NewBidHandler(bids BidService, escrow EscrowService) *BidHandler {
	return &BidHandler{bids: bids, escrow: escrow}
}

// SubmitBidRequest - тело POST /quotations/:id/bids.
type SubmitBidRequest struct {
	Price decimal.Decimal `json:"price"`
	Notes string          `json:"notes"`
}

// CapturePaymentRequest - тело POST /bids/:id/payment.
type CapturePaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// SubmitBid POST /quotations/:id/bids
func (h *BidHandler) SubmitBid(c *gin.Context) {
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

	var req SubmitBidRequest
	if !common.BindJSON(c, &req) {
		return
	}

	bid, err := h.bids.SubmitBid(c.Request.Context(), quotationID, p.ID, req.Price, req.Notes)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// GetBid GET /bids/:id
func (h *BidHandler) GetBid(c *gin.Context) {
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный id ставки")
		return
	}

	bid, err := h.bids.GetBid(c.Request.Context(), bidID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bid)
}

// CapturePayment POST /bids/:id/payment
func (h *BidHandler) CapturePayment(c *gin.Context) {
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

	var req CapturePaymentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	bid, err := h.escrow.CapturePayment(c.Request.Context(), p.ID, bidID, req.PaymentReference)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bid)
}

// DisburseFunds POST /bids/:id/disburse
func (h *BidHandler) DisburseFunds(c *gin.Context) {
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

	result, err := h.escrow.DisburseFunds(c.Request.Context(), p.ID, bidID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
