package events

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/middleware"
	"github.com/tsdip/backend/internal/organizations"
	"github.com/tsdip/backend/pkg/response"
)

// EventRequest is the body for creating or updating an event.
type EventRequest struct {
	Name        string                      `json:"name" binding:"required"`
	Description *string                     `json:"description"`
	Amount      int                         `json:"amount"`
	Price       int                         `json:"price"`
	RegLink     *string                     `json:"reg_link"`
	RegStartAt  *time.Time                  `json:"reg_start_at"`
	RegEndAt    *time.Time                  `json:"reg_end_at"`
	StartAt     *time.Time                  `json:"start_at"`
	EndAt       *time.Time                  `json:"end_at"`
	Social      *organizations.SocialParams `json:"social"`
	TicketFares []TicketFareRequest         `json:"ticket_fares"`
}

func (r *EventRequest) params() EventParams {
	fares := make([]TicketFareParams, 0, len(r.TicketFares))
	for i := range r.TicketFares {
		fares = append(fares, r.TicketFares[i].params())
	}
	return EventParams{
		Name:        r.Name,
		Description: r.Description,
		Amount:      r.Amount,
		Price:       r.Price,
		RegLink:     r.RegLink,
		RegStartAt:  r.RegStartAt,
		RegEndAt:    r.RegEndAt,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		Social:      r.Social,
		TicketFares: fares,
	}
}

// TicketFareRequest is the body for creating or updating a ticket fare.
type TicketFareRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description *string    `json:"description"`
	Amount      int        `json:"amount"`
	Price       int        `json:"price"`
	RegLink     *string    `json:"reg_link"`
	RegStartAt  *time.Time `json:"reg_start_at"`
	RegEndAt    *time.Time `json:"reg_end_at"`
}

func (r *TicketFareRequest) params() TicketFareParams {
	return TicketFareParams{
		Name:        r.Name,
		Description: r.Description,
		Amount:      r.Amount,
		Price:       r.Price,
		RegLink:     r.RegLink,
		RegStartAt:  r.RegStartAt,
		RegEndAt:    r.RegEndAt,
	}
}

// Handler handles event HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Create handles POST /orgs/:id/events.
func (h *Handler) Create(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.service.CreateEvent(c.Request.Context(), middleware.Actor(c), orgID, req.params())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Get handles GET /events/:event_id.
func (h *Handler) Get(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	e, fares, err := h.service.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"event": e, "ticket_fares": fares})
}

// ListByOrg handles GET /orgs/:id/events.
func (h *Handler) ListByOrg(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.service.ListByOrg(c.Request.Context(), middleware.Actor(c), orgID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Update handles PUT /events/:event_id.
func (h *Handler) Update(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.service.UpdateEvent(c.Request.Context(), middleware.Actor(c), eventID, req.params()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": eventID})
}

// Approve handles PUT /manager/events/:event_id/approve.
func (h *Handler) Approve(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	if err := h.service.ApproveEvent(c.Request.Context(), middleware.Actor(c), eventID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": eventID})
}

// Publish handles PUT /events/:event_id/publish.
func (h *Handler) Publish(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	if err := h.service.PublishEvent(c.Request.Context(), middleware.Actor(c), eventID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": eventID})
}

// Unpublish handles PUT /events/:event_id/unpublish.
func (h *Handler) Unpublish(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	if err := h.service.UnpublishEvent(c.Request.Context(), middleware.Actor(c), eventID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": eventID})
}

// Delete handles DELETE /events/:event_id.
func (h *Handler) Delete(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(c.Request.Context(), middleware.Actor(c), eventID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": eventID})
}

// AddTicketFare handles POST /events/:event_id/tickets.
func (h *Handler) AddTicketFare(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	var req TicketFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := h.service.AddTicketFare(c.Request.Context(), middleware.Actor(c), eventID, req.params())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// UpdateTicketFare handles PUT /tickets/:ticket_id.
func (h *Handler) UpdateTicketFare(c *gin.Context) {
	fareID, ok := pathID(c, "ticket_id")
	if !ok {
		return
	}
	var req TicketFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.service.UpdateTicketFare(c.Request.Context(), middleware.Actor(c), fareID, req.params()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": fareID})
}

// DeleteTicketFare handles DELETE /tickets/:ticket_id.
func (h *Handler) DeleteTicketFare(c *gin.Context) {
	fareID, ok := pathID(c, "ticket_id")
	if !ok {
		return
	}
	if err := h.service.DeleteTicketFare(c.Request.Context(), middleware.Actor(c), fareID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": fareID})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
