package organizations

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/middleware"
	"github.com/tsdip/backend/pkg/response"
)

// CreateOrgRequest is the body for POST /orgs.
type CreateOrgRequest struct {
	Name        string        `json:"name" binding:"required"`
	OrgType     string        `json:"org_type" binding:"required"`
	Description *string       `json:"description"`
	Address     *string       `json:"address"`
	Social      *SocialParams `json:"social"`
}

// UpdateOrgRequest is the body for PUT /orgs/:id.
type UpdateOrgRequest struct {
	Description *string       `json:"description"`
	Address     *string       `json:"address"`
	Social      *SocialParams `json:"social"`
}

// ApproveOrgRequest is the body for PUT /manager/orgs/:id/approve.
type ApproveOrgRequest struct {
	ReqType string `json:"req_type" binding:"required"`
}

// InviteMemberRequest is the body for POST /orgs/:id/members.
type InviteMemberRequest struct {
	UserID *uuid.UUID `json:"user_id"`
	Email  *string    `json:"email"`
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an organization handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Create handles POST /orgs.
func (h *Handler) Create(c *gin.Context) {
	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	org, err := h.service.CreateOrganization(c.Request.Context(), middleware.Actor(c), CreateOrgParams{
		Name:        req.Name,
		OrgType:     req.OrgType,
		Description: req.Description,
		Address:     req.Address,
		Social:      req.Social,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// Get handles GET /orgs/:id.
func (h *Handler) Get(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	org, err := h.service.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Update handles PUT /orgs/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	err := h.service.UpdateOrganization(c.Request.Context(), middleware.Actor(c), orgID, UpdateOrgParams{
		Description: req.Description,
		Address:     req.Address,
		Social:      req.Social,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": orgID})
}

// Delete handles DELETE /orgs/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrganization(c.Request.Context(), middleware.Actor(c), orgID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": orgID})
}

// Claim handles POST /orgs/:id/claim.
func (h *Handler) Claim(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.service.ClaimOrganization(c.Request.Context(), middleware.Actor(c), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// Approve handles PUT /manager/orgs/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ApproveOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.service.ApproveOrganization(c.Request.Context(), middleware.Actor(c), orgID, req.ReqType); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": orgID})
}

// InviteMember handles POST /orgs/:id/members.
func (h *Handler) InviteMember(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	log, err := h.service.InviteMember(c.Request.Context(), middleware.Actor(c), orgID, InviteParams{
		UserID: req.UserID,
		Email:  req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// RemoveMember handles DELETE /orgs/:id/members/:user_id.
func (h *Handler) RemoveMember(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.RemoveMember(c.Request.Context(), middleware.Actor(c), orgID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"org_id": orgID, "user_id": userID})
}

// ListMembers handles GET /orgs/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.service.ListMembers(c.Request.Context(), middleware.Actor(c), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, members)
}

// ListMine handles GET /me/orgs.
func (h *Handler) ListMine(c *gin.Context) {
	actor := middleware.Actor(c)
	page, limit := pagination(c)
	list, err := h.service.ListForUser(c.Request.Context(), actor.ID, c.Query("org_type"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListReviewing handles GET /me/orgs/reviewing.
func (h *Handler) ListReviewing(c *gin.Context) {
	actor := middleware.Actor(c)
	page, limit := pagination(c)
	list, err := h.service.ListReviewing(c.Request.Context(), actor.ID, c.Query("org_type"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
