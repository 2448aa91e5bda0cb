package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

func TestBidHandler_SubmitBid(t *testing.T) {
	supplierID, quotationID := uuid.New(), uuid.New()
	bids := new(mockBidService)
	bids.On("SubmitBid", mock.Anything, quotationID, supplierID, decimalEq("720.50"), "можем завтра").
		Return(&models.Bid{
			ID:          uuid.New(),
			QuotationID: quotationID,
			SupplierID:  supplierID,
			Price:       decimal.RequireFromString("720.50"),
			Status:      models.BidStatusPending,
		}, nil)

	r := gin.New()
	r.POST("/quotations/:id/bids", asPrincipal(supplierID, models.RoleSupplier), NewBidHandler(bids, nil).SubmitBid)

	w := doJSON(r, http.MethodPost, "/quotations/"+quotationID.String()+"/bids", map[string]any{
		"price": "720.50",
		"notes": "можем завтра",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	bids.AssertExpectations(t)
}

func TestBidHandler_SubmitBid_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid price", service.ErrInvalidPrice, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quotation missing", service.ErrQuotationNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"quotation not open", service.ErrQuotationNotOpen, http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bids := new(mockBidService)
			bids.On("SubmitBid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			r := gin.New()
			r.POST("/quotations/:id/bids", asPrincipal(uuid.New(), models.RoleSupplier), NewBidHandler(bids, nil).SubmitBid)

			w := doJSON(r, http.MethodPost, "/quotations/"+uuid.NewString()+"/bids", map[string]any{"price": 0})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w)["code"])
		})
	}
}

func TestBidHandler_GetBid(t *testing.T) {
	bidID := uuid.New()
	bids := new(mockBidService)
	bids.On("GetBid", mock.Anything, bidID).Return(&service.BidDetails{
		Bid: models.Bid{ID: bidID, Status: models.BidStatusAccepted},
		Commission: &models.CommissionRecord{
			BidID:             bidID,
			CommissionPercent: decimal.RequireFromString("15"),
			SettlementPrice:   decimal.RequireFromString("575"),
		},
	}, nil)

	r := gin.New()
	r.GET("/bids/:id", NewBidHandler(bids, nil).GetBid)

	w := doJSON(r, http.MethodGet, "/bids/"+bidID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	commission, ok := body["commission"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "575", commission["settlement_price"])
}

func TestBidHandler_CapturePayment_RequiresReference(t *testing.T) {
	r := gin.New()
	r.POST("/bids/:id/payment", asPrincipal(uuid.New(), models.RoleRequester), NewBidHandler(nil, new(mockEscrowService)).CapturePayment)

	w := doJSON(r, http.MethodPost, "/bids/"+uuid.NewString()+"/payment", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBidHandler_CapturePayment_Forbidden(t *testing.T) {
	requesterID, bidID := uuid.New(), uuid.New()
	escrow := new(mockEscrowService)
	escrow.On("CapturePayment", mock.Anything, requesterID, bidID, "pay_123").Return(nil, service.ErrNotQuotationOwner)

	r := gin.New()
	r.POST("/bids/:id/payment", asPrincipal(requesterID, models.RoleRequester), NewBidHandler(nil, escrow).CapturePayment)

	w := doJSON(r, http.MethodPost, "/bids/"+bidID.String()+"/payment", map[string]any{"payment_reference": "pay_123"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	escrow.AssertExpectations(t)
}

func TestBidHandler_DisburseFunds_SurfacesOpenDispute(t *testing.T) {
	operatorID, bidID, disputeID := uuid.New(), uuid.New(), uuid.New()
	escrow := new(mockEscrowService)
	escrow.On("DisburseFunds", mock.Anything, operatorID, bidID).Return(&service.DisbursementResult{
		Bid:         models.Bid{ID: bidID, DisbursementStatus: models.DisbursementStatusDisbursed},
		OpenDispute: &models.Dispute{ID: disputeID, Status: models.DisputeStatusPending},
	}, nil)

	r := gin.New()
	r.POST("/bids/:id/disburse", asPrincipal(operatorID, models.RoleOperator), NewBidHandler(nil, escrow).DisburseFunds)

	w := doJSON(r, http.MethodPost, "/bids/"+bidID.String()+"/disburse", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), disputeID.String())
}

func TestBidHandler_DisburseFunds_Conflicts(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"already disbursed", service.ErrAlreadyDisbursed, http.StatusConflict},
		{"payment not completed", service.ErrPaymentNotCompleted, http.StatusPreconditionFailed},
		{"bid missing", service.ErrBidNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escrow := new(mockEscrowService)
			escrow.On("DisburseFunds", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			r := gin.New()
			r.POST("/bids/:id/disburse", asPrincipal(uuid.New(), models.RoleOperator), NewBidHandler(nil, escrow).DisburseFunds)

			w := doJSON(r, http.MethodPost, "/bids/"+uuid.NewString()+"/disburse", nil)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
