package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/model"
	"teamboard/internal/realtime"
	"teamboard/internal/repository"
)

// TagHandler управляет метками; привязка и отвязка метки к тикету
// рассылает комнате команды свежий снимок тикета
type TagHandler struct {
	tagRepo    *repository.TagRepository
	ticketRepo *repository.TicketRepository
	teamRepo   *repository.TeamRepository
	userRepo   repository.UserRepositoryInterface
	hub        *realtime.Hub
}

func NewTagHandler(
	tagRepo *repository.TagRepository,
	ticketRepo *repository.TicketRepository,
	teamRepo *repository.TeamRepository,
	userRepo repository.UserRepositoryInterface,
	hub *realtime.Hub,
) *TagHandler {
	return &TagHandler{
		tagRepo:    tagRepo,
		ticketRepo: ticketRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		hub:        hub,
	}
}

type TagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color" binding:"required"`
}

func toTagResponse(tag *model.Tag) TagResponse {
	return TagResponse{ID: tag.ID.String(), Name: tag.Name, Color: tag.Color}
}

// Create создает метку, доступно только админу
func (h *TagHandler) Create(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and color are required"})
		return
	}

	tag := &model.Tag{Name: req.Name, Color: req.Color}
	if err := h.tagRepo.Create(c.Request.Context(), tag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, toTagResponse(tag))
}

func (h *TagHandler) GetAll(c *gin.Context) {
	tags, err := h.tagRepo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tags"})
		return
	}

	response := make([]TagResponse, len(tags))
	for i := range tags {
		response[i] = toTagResponse(&tags[i])
	}
	c.JSON(http.StatusOK, response)
}

// Update изменяет метку, доступно только админу
func (h *TagHandler) Update(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and color are required"})
		return
	}

	tag := &model.Tag{ID: id, Name: req.Name, Color: req.Color}
	if err := h.tagRepo.Update(c.Request.Context(), tag); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tag"})
		}
		return
	}

	c.JSON(http.StatusOK, toTagResponse(tag))
}

// Delete удаляет метку и ее привязки к тикетам, доступно только админу
func (h *TagHandler) Delete(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	if err := h.tagRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AttachToTicket привязывает метку к тикету; права те же, что и на
// обновление тикета
func (h *TagHandler) AttachToTicket(c *gin.Context) {
	h.toggleTicketTag(c, true)
}

// DetachFromTicket отвязывает метку от тикета
func (h *TagHandler) DetachFromTicket(c *gin.Context) {
	h.toggleTicketTag(c, false)
}

func (h *TagHandler) toggleTicketTag(c *gin.Context, attach bool) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID format"})
		return
	}

	tagID, err := uuid.Parse(c.Param("tag_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	ticket, err := h.ticketRepo.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), ticket.TeamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	isAssignee := ticket.AssigneeID != nil && *ticket.AssigneeID == actorID
	if !canEditTicket(role, teamRole, isAssignee) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to update this ticket"})
		return
	}

	if _, err := h.tagRepo.GetByID(c.Request.Context(), tagID); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tag"})
		}
		return
	}

	if attach {
		err = h.ticketRepo.AddTag(c.Request.Context(), ticketID, tagID)
	} else {
		err = h.ticketRepo.RemoveTag(c.Request.Context(), ticketID, tagID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket tags"})
		return
	}

	updated, err := h.ticketRepo.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		return
	}

	actor, err := h.userRepo.GetByID(c.Request.Context(), actorID)
	if err == nil && actor != nil {
		h.hub.Broadcast(realtime.NewTicketEvent(realtime.TicketUpdated, updated, actor))
	}
	c.JSON(http.StatusOK, toTicketResponse(updated))
}
