package approvals

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/httpapi"
	"github.com/benariet/SemScan-Project-sub001/internal/middleware"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// Handler handles approval HTTP endpoints. The approve/decline routes are
// unauthenticated: the token in the link is the supervisor's credential.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an approvals handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Approve handles GET and POST /approvals/:token/approve.
func (h *Handler) Approve(c *gin.Context) {
	decision, err := h.svc.Approve(c.Request.Context(), c.Param("token"))
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, decision)
}

// DeclineRequest is the optional body for POST /approvals/:token/decline.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// Decline handles GET and POST /approvals/:token/decline. The reason comes
// from the JSON body or, for link clicks, the "reason" query parameter.
func (h *Handler) Decline(c *gin.Context) {
	reason := c.Query("reason")
	if c.Request.Method != "GET" {
		var req DeclineRequest
		if err := c.ShouldBindJSON(&req); err == nil && req.Reason != "" {
			reason = req.Reason
		}
	}
	decision, err := h.svc.Decline(c.Request.Context(), c.Param("token"), reason)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, decision)
}

// Resend handles POST /slots/:id/approval/resend: a presenter asks for a
// fresh token and supervisor email for their pending registration.
func (h *Handler) Resend(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	reg, err := h.svc.Reissue(c.Request.Context(), middleware.Username(c), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, reg)
}
