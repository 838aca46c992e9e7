// Package emaillogs records and serves the delivery log the worker writes
// for every outbound email.
package emaillogs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListBySlot handles GET /slots/:id/emails. Coordinator only; route it
// behind RequireRole.
func (h *Handler) ListBySlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	logs, err := h.repo.ListBySlot(c.Request.Context(), slotID)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
