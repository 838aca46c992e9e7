package attendance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/httpapi"
	"github.com/benariet/SemScan-Project-sub001/internal/middleware"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Open handles POST /slots/:id/attendance.
func (h *Handler) Open(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	result, err := h.svc.Open(c.Request.Context(), middleware.Username(c), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	if result.Outcome == OutcomeAlreadyOpen {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// Status handles GET /slots/:id/attendance.
func (h *Handler) Status(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	result, err := h.svc.Status(c.Request.Context(), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, result)
}
