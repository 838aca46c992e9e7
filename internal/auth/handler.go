package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
	"github.com/benariet/SemScan-Project-sub001/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required,min=6"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Degree          string `json:"degree"` // MSc (default) or PhD
	SupervisorName  string `json:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string           `json:"token"`
	Presenter models.Presenter `json:"presenter"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	username := presenters.Normalize(req.Username)
	if username == "" {
		response.BadRequest(c, "invalid username")
		return
	}
	degree := models.NormalizeDegree(models.Degree(req.Degree))
	if req.Degree != "" && req.Degree != string(models.DegreeMSc) && req.Degree != string(models.DegreePhD) {
		response.BadRequest(c, "invalid degree")
		return
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), username); err == nil {
		response.BadRequest(c, "username already registered")
		return
	} else if !errors.Is(err, ErrNotFound) {
		h.logger.Error("lookup presenter failed", zap.Error(err), zap.String("username", username))
		response.Internal(c, "failed to create account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	p := &models.Presenter{
		Username:     username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Degree:       degree,
		Role:         models.RolePresenter,
		PasswordHash: hash,
	}
	if req.SupervisorName != "" {
		p.SupervisorName = &req.SupervisorName
	}
	if req.SupervisorEmail != "" {
		p.SupervisorEmail = &req.SupervisorEmail
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create presenter failed", zap.Error(err), zap.String("username", username))
		response.Internal(c, "failed to create account")
		return
	}

	token, err := h.jwt.Generate(p.Username, p.Email, p.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, Presenter: *p})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.repo.GetByUsername(c.Request.Context(), presenters.Normalize(req.Username))
	if err != nil {
		response.Unauthorized(c, "invalid username or password")
		return
	}
	if !utils.CheckPassword(req.Password, p.PasswordHash) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(p.Username, p.Email, p.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, Presenter: *p}})
}

// List handles GET /presenters (coordinator only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list presenters")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: list})
}
