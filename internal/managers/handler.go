package managers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/middleware"
	"github.com/tsdip/backend/pkg/response"
)

// SignUpRequest is the body for POST /manager/signup.
type SignUpRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" binding:"required,min=8"`
}

// LoginRequest is the body for POST /manager/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Handler handles manager HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a managers handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// SignUp handles POST /manager/signup.
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.service.SignUp(c.Request.Context(), SignUpParams{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": m.ID, "username": m.Username, "email": m.Email})
}

// Login handles POST /manager/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"token": token, "manager": gin.H{"id": m.ID, "username": m.Username, "email": m.Email}})
}

// Profile handles GET /manager/me.
func (h *Handler) Profile(c *gin.Context) {
	actor := middleware.Actor(c)
	m, err := h.service.Profile(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": m.ID, "username": m.Username, "email": m.Email, "phone": m.Phone})
}
