package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts every route on an admin-only group.
func (h *InventoryHandler) Register(admin gin.IRouter) {
	g := admin.Group("/inventory")
	g.GET("/transactions", h.ListTransactions)
	g.GET("/low-stock", h.ListLowStock)
	g.POST("/products/:id/adjust", h.AdjustInventory)
	g.GET("/products/:id/history", h.GetStockHistory)
	g.GET("/products/:id/threshold-suggestion", h.SuggestThreshold)
	g.POST("/backfill", h.BackfillHistory)
}

func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	filters := &dto.TransactionFilters{
		ProductID: c.Query("product_id"),
		Type:      model.TransactionType(c.Query("type")),
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	for key, dst := range map[string]**time.Time{"start_date": &filters.StartDate, "end_date": &filters.EndDate} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be RFC 3339", "code": "INVALID_INPUT"})
			return
		}
		*dst = &t
	}

	items, total, err := h.uc.ListTransactions(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list inventory transactions", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items, "total": total})
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, total, err := h.uc.ListLowStock(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list low stock", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	var input dto.AdjustInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}
	input.ProductID = c.Param("id")
	input.UserID = auth.GetUserID(c)

	p, err := h.uc.AdjustInventory(c.Request.Context(), &input)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) GetStockHistory(c *gin.Context) {
	result, err := h.uc.GetStockHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) SuggestThreshold(c *gin.Context) {
	result, err := h.uc.SuggestThreshold(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) BackfillHistory(c *gin.Context) {
	result, err := h.uc.BackfillHistory(c.Request.Context())
	if err != nil {
		h.logger.Error("stock history backfill failed", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
