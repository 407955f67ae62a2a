package emaillogs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByOrg handles GET /manager/orgs/:id/emails. Mounted behind the
// manager guard so access is already validated.
func (h *Handler) ListByOrg(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid org id")
		return
	}
	logs, err := h.repo.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		response.Error(c, apperr.Unexpected(err))
		return
	}
	response.OK(c, logs)
}
