package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	uc     checkout.UseCase
	logger logger.ZapLogger
}

func NewCheckoutHandler(uc checkout.UseCase, log logger.ZapLogger) *CheckoutHandler {
	return &CheckoutHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the routes on a group that already runs the auth middleware.
func (h *CheckoutHandler) Register(r gin.IRouter) {
	g := r.Group("/checkout")
	g.POST("", h.Checkout)
	g.POST("/payment-init", h.InitPayment)
	g.POST("/events", h.GatewayEvent)
	g.GET("/sessions/:reference", h.GetSession)
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	u, _ := auth.CurrentUser(c)

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	res, err := h.uc.Checkout(c.Request.Context(), &dto.CheckoutInput{
		UserID:           u.UserID,
		UserEmail:        u.Email,
		Lines:            req.Lines,
		PaymentReference: req.PaymentReference,
		DeliveryMethod:   req.DeliveryMethod,
		DeliveryAddress:  req.DeliveryAddress,
	})
	if err != nil {
		h.logger.Warn("checkout rejected", zap.String("user_id", u.UserID), zap.Error(err))
		apperror.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CheckoutHandler) InitPayment(c *gin.Context) {
	u, _ := auth.CurrentUser(c)

	var req dto.PaymentInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	init, err := h.uc.InitPayment(c.Request.Context(), &dto.PaymentInitInput{
		UserID:          u.UserID,
		UserEmail:       u.Email,
		Lines:           req.Lines,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		apperror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, init)
}

// GatewayEvent receives the hosted checkout callback relayed by the client.
func (h *CheckoutHandler) GatewayEvent(c *gin.Context) {
	var ev payment.GatewayEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
		return
	}

	s, err := h.uc.HandleGatewayEvent(c.Request.Context(), auth.GetUserID(c), ev)
	if err != nil {
		if s != nil {
			h.logger.Error("checkout session failed",
				zap.String("reference", s.Reference),
				zap.String("state", string(s.State)),
				zap.Error(err))
		}
		apperror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

func (h *CheckoutHandler) GetSession(c *gin.Context) {
	s, err := h.uc.GetSession(c.Request.Context(), auth.GetUserID(c), c.Param("reference"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
