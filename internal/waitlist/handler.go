package waitlist

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/httpapi"
	"github.com/benariet/SemScan-Project-sub001/internal/middleware"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// Handler handles waiting-list HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a waiting-list handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// JoinRequest is the body for POST /slots/:id/waitlist.
type JoinRequest struct {
	Topic           string `json:"topic"`
	SupervisorName  string `json:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email" binding:"omitempty,email"`
}

// Join handles POST /slots/:id/waitlist.
func (h *Handler) Join(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	entry, err := h.svc.Add(c.Request.Context(), middleware.Username(c), slotID, AddInput{
		Topic:           req.Topic,
		SupervisorName:  req.SupervisorName,
		SupervisorEmail: req.SupervisorEmail,
	})
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.Created(c, entry)
}

// Leave handles DELETE /slots/:id/waitlist.
func (h *Handler) Leave(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	if err := h.svc.Remove(c.Request.Context(), middleware.Username(c), slotID); err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.NoContent(c)
}

// List handles GET /slots/:id/waitlist.
func (h *Handler) List(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	entries, err := h.svc.List(c.Request.Context(), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, entries)
}
