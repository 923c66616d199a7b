package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PromptHandler lets a client claim the sign-in prompt for its session so
// parallel triggers (add to cart, checkout) do not open it twice.
type PromptHandler struct {
	gate *PromptGate
}

func NewPromptHandler(gate *PromptGate) *PromptHandler {
	return &PromptHandler{gate: gate}
}

func (h *PromptHandler) Register(r gin.IRouter) {
	r.POST("/auth/prompt/:session", h.Acquire)
	r.DELETE("/auth/prompt/:session", h.Release)
}

func (h *PromptHandler) Acquire(c *gin.Context) {
	granted := h.gate.TryAcquire(c.Param("session"))
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}

func (h *PromptHandler) Release(c *gin.Context) {
	h.gate.Release(c.Param("session"))
	c.Status(http.StatusNoContent)
}
