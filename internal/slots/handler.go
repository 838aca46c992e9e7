package slots

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/httpapi"
	"github.com/benariet/SemScan-Project-sub001/internal/middleware"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// Handler handles slot HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a slots handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body for POST /slots (coordinator only).
type CreateRequest struct {
	SemesterLabel string     `json:"semester_label"`
	StartsAt      time.Time  `json:"starts_at" binding:"required"`
	EndsAt        *time.Time `json:"ends_at"`
	Building      string     `json:"building"`
	Room          string     `json:"room"`
	Capacity      int        `json:"capacity" binding:"required,min=1"`
}

// Create handles POST /slots.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slot, err := h.svc.CreateSlot(c.Request.Context(), SlotInput{
		SemesterLabel: req.SemesterLabel,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Building:      req.Building,
		Room:          req.Room,
		Capacity:      req.Capacity,
	})
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.Created(c, slot)
}

// List handles GET /slots. Defaults to upcoming slots; ?from=RFC3339
// overrides the range start.
func (h *Handler) List(c *gin.Context) {
	from := h.svc.Now()
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid from timestamp")
			return
		}
		from = parsed
	}
	list, err := h.svc.Catalog(c.Request.Context(), from)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /slots/:id.
func (h *Handler) Get(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	summary, err := h.svc.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, summary)
}

// RegisterRequest is the body for POST /slots/:id/register.
type RegisterRequest struct {
	Topic           string `json:"topic"`
	SupervisorName  string `json:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email" binding:"omitempty,email"`
}

// Register handles POST /slots/:id/register.
func (h *Handler) Register(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.svc.Register(c.Request.Context(), middleware.Username(c), slotID, RegisterInput{
		Topic:           req.Topic,
		SupervisorName:  req.SupervisorName,
		SupervisorEmail: req.SupervisorEmail,
	})
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	if result.Outcome == OutcomeAlreadyInSlot {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// Unregister handles DELETE /slots/:id/register.
func (h *Handler) Unregister(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	result, err := h.svc.Unregister(c.Request.Context(), middleware.Username(c), slotID)
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, result)
}

// Home handles GET /me.
func (h *Handler) Home(c *gin.Context) {
	view, err := h.svc.Home(c.Request.Context(), middleware.Username(c))
	if err != nil {
		httpapi.Error(c, h.logger, err)
		return
	}
	response.OK(c, view)
}
