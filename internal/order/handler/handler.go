package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/order"
	"github.com/fekuna/omnipos-storefront-service/internal/order/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts shopper routes on user and order management on admin.
// Both groups must run the auth middleware.
func (h *OrderHandler) Register(user, admin gin.IRouter) {
	user.GET("/orders", h.ListMyOrders)
	user.GET("/orders/:id", h.GetOrder)
	user.GET("/addresses", h.ListAddresses)
	user.POST("/addresses", h.AddAddress)

	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/:id", h.GetOrder)
	admin.PATCH("/orders/:id/status", h.UpdateStatus)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.uc.ListUserOrders(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	o, err := h.uc.GetOrder(c.Request.Context(), u.UserID, u.IsAdmin(), c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filters := &dto.OrderFilters{
		Status:   model.OrderStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}

	orders, total, err := h.uc.ListOrders(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var input dto.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	o, err := h.uc.UpdateStatus(c.Request.Context(), auth.GetUserID(c), c.Param("id"), input.Status)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) ListAddresses(c *gin.Context) {
	addresses, err := h.uc.ListAddresses(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *OrderHandler) AddAddress(c *gin.Context) {
	var input dto.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	a, err := h.uc.AddAddress(c.Request.Context(), auth.GetUserID(c), &input)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}
