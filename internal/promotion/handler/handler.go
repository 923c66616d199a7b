package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PromotionHandler struct {
	uc     promotion.UseCase
	logger logger.ZapLogger
}

func NewPromotionHandler(uc promotion.UseCase, log logger.ZapLogger) *PromotionHandler {
	return &PromotionHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *PromotionHandler) Register(public, admin gin.IRouter) {
	public.GET("/promotions", h.ListPromotions)
	public.GET("/promotions/:id", h.GetPromotion)

	admin.POST("/promotions", h.CreatePromotion)
	admin.PUT("/promotions/:id", h.UpdatePromotion)
	admin.DELETE("/promotions/:id", h.DeletePromotion)
}

// ListPromotions returns only running promotions unless all=true.
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	filters := &dto.PromotionFilters{}
	if c.Query("all") != "true" {
		now := time.Now()
		filters.ActiveAt = &now
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	promotions, total, err := h.uc.ListPromotions(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list promotions", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": promotions, "total": total})
}

func (h *PromotionHandler) GetPromotion(c *gin.Context) {
	p, err := h.uc.GetPromotion(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var input dto.PromotionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	p, err := h.uc.CreatePromotion(c.Request.Context(), &input)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PromotionHandler) UpdatePromotion(c *gin.Context) {
	var input dto.PromotionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	p, err := h.uc.UpdatePromotion(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	if err := h.uc.DeletePromotion(c.Request.Context(), c.Param("id")); err != nil {
		apperror.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
