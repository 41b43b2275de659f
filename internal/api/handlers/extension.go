package handlers

import (
	"github.com/gin-gonic/gin"

	"ticketflow/internal/messaging"
	"ticketflow/pkg/response"
)

// ExtensionMessage is the HTTP bridge for the observer-side channel:
// one typed message in, exactly one response out.
func (h *Handlers) ExtensionMessage(c *gin.Context) {
	var req struct {
		TabID   string            `json:"tab_id"`
		Message messaging.Message `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Message.Type == "" {
		response.BadRequest(c, "message type is required")
		return
	}

	resp := h.deps.Control.Handle(c.Request.Context(), req.TabID, req.Message)
	response.Success(c, resp)
}

// GetLoginStatuses returns the per-tab login state the controller has
// aggregated from login-status-changed messages.
func (h *Handlers) GetLoginStatuses(c *gin.Context) {
	response.Success(c, gin.H{
		"enabled":    h.deps.Control.Enabled(),
		"monitoring": h.deps.Control.Monitoring(),
		"tabs":       h.deps.Control.LoginStatuses(),
	})
}
