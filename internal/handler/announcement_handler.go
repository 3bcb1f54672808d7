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

// AnnouncementHandler управляет объявлениями; каждое изменение
// рассылается всем подключенным клиентам независимо от комнат
type AnnouncementHandler struct {
	repo *repository.AnnouncementRepository
	hub  *realtime.Hub
}

func NewAnnouncementHandler(repo *repository.AnnouncementRepository, hub *realtime.Hub) *AnnouncementHandler {
	return &AnnouncementHandler{repo: repo, hub: hub}
}

type AnnouncementRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Pinned  bool   `json:"pinned"`
}

type AnnouncementResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Pinned    bool   `json:"pinned"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

func toAnnouncementResponse(a *model.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:        a.ID.String(),
		Title:     a.Title,
		Content:   a.Content,
		Pinned:    a.Pinned,
		CreatedBy: a.CreatedBy.String(),
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *AnnouncementHandler) GetAll(c *gin.Context) {
	announcements, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve announcements"})
		return
	}

	response := make([]AnnouncementResponse, len(announcements))
	for i := range announcements {
		response[i] = toAnnouncementResponse(&announcements[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create создает объявление, доступно только админу
func (h *AnnouncementHandler) Create(c *gin.Context) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	announcement := &model.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		Pinned:    req.Pinned,
		CreatedBy: actorID,
	}
	if err := h.repo.Create(c.Request.Context(), announcement); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create announcement"})
		return
	}

	h.hub.Broadcast(realtime.NewAnnouncementEvent(realtime.AnnouncementCreated, announcement))
	c.JSON(http.StatusCreated, toAnnouncementResponse(announcement))
}

// Update изменяет объявление, доступно только админу
func (h *AnnouncementHandler) Update(c *gin.Context) {
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid announcement ID format"})
		return
	}

	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	announcement := &model.Announcement{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
		Pinned:  req.Pinned,
	}
	if err := h.repo.Update(c.Request.Context(), announcement); err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Announcement not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update announcement"})
		}
		return
	}

	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve announcement"})
		return
	}

	h.hub.Broadcast(realtime.NewAnnouncementEvent(realtime.AnnouncementUpdated, updated))
	c.JSON(http.StatusOK, toAnnouncementResponse(updated))
}

// Delete удаляет объявление, доступно только админу
func (h *AnnouncementHandler) Delete(c *gin.Context) {
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid announcement ID format"})
		return
	}

	announcement, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Announcement not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve announcement"})
		}
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete announcement"})
		return
	}

	h.hub.Broadcast(realtime.NewAnnouncementEvent(realtime.AnnouncementDeleted, announcement))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
