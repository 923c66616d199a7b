package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/product"
	"github.com/fekuna/omnipos-storefront-service/internal/product/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts shopper routes on public and catalog management on admin.
func (h *ProductHandler) Register(public, admin gin.IRouter) {
	public.GET("/products", h.ListProducts)
	public.GET("/products/:id", h.GetProduct)

	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filters := &dto.ProductFilters{
		Category:    c.Query("category"),
		SearchQuery: c.Query("q"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}

	views, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		apperror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  views,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	v, err := h.uc.GetProductView(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var input dto.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	v, err := h.uc.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var input dto.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}
	input.ID = c.Param("id")

	v, err := h.uc.UpdateProduct(c.Request.Context(), &input)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.uc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		apperror.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
