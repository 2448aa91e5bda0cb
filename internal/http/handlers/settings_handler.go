package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// SettingsService - настройки автоматического аукциона.
type SettingsService interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Update(ctx context.Context, auctionEnabled *bool, commissionPercent *decimal.Decimal) (*models.PlatformSettings, error)
}

type SettingsHandler struct {
	svc SettingsService
}

func NewSettingsHandler(s SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: s}
}

// UpdateAuctionRequest - частичное обновление, пустые поля не меняются.
type UpdateAuctionRequest struct {
	AuctionEnabled    *bool            `json:"auction_enabled"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
}

// GetAuction GET /settings/auction
func (h *SettingsHandler) GetAuction(c *gin.Context) {
	settings, err := h.svc.Get(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateAuction PUT /settings/auction
func (h *SettingsHandler) UpdateAuction(c *gin.Context) {
	var req UpdateAuctionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	settings, err := h.svc.Update(c.Request.Context(), req.AuctionEnabled, req.CommissionPercent)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
