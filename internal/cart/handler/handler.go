package handler

import (
	"io"
	"net/http"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/cart/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartHandler struct {
	uc     cart.UseCase
	logger logger.ZapLogger
}

func NewCartHandler(uc cart.UseCase, log logger.ZapLogger) *CartHandler {
	return &CartHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *CartHandler) Register(r gin.IRouter) {
	g := r.Group("/cart")
	g.GET("", h.GetCart)
	g.DELETE("", h.Clear)
	g.GET("/stream", h.Stream)
	g.POST("/items", h.AddItem)
	g.PUT("/items/:productId", h.UpdateItem)
	g.DELETE("/items/:productId", h.RemoveItem)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	view, err := h.uc.GetCart(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	view, err := h.uc.AddItem(c.Request.Context(), &dto.AddItemInput{
		UserID:    auth.GetUserID(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	view, err := h.uc.UpdateItem(c.Request.Context(), &dto.UpdateItemInput{
		UserID:    auth.GetUserID(c),
		ProductID: c.Param("productId"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	view, err := h.uc.RemoveItem(c.Request.Context(), auth.GetUserID(c), c.Param("productId"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.uc.Clear(c.Request.Context(), auth.GetUserID(c)); err != nil {
		apperror.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream pushes a "cart" server-sent event for every snapshot until the
// client disconnects.
func (h *CartHandler) Stream(c *gin.Context) {
	userID := auth.GetUserID(c)
	ch, cancel, err := h.uc.Subscribe(c.Request.Context(), userID)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	defer cancel()

	h.logger.Debug("cart stream opened", zap.String("user_id", userID))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("cart", cart.NewView(snap))
			return true
		}
	})
}
