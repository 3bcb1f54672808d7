package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/model"
	"teamboard/internal/realtime"
	"teamboard/internal/repository"
)

// ReflectionHandler управляет еженедельными ретроспективами команды;
// сохранение рассылается комнате команды
type ReflectionHandler struct {
	reflectionRepo *repository.ReflectionRepository
	teamRepo       *repository.TeamRepository
	hub            *realtime.Hub
}

func NewReflectionHandler(
	reflectionRepo *repository.ReflectionRepository,
	teamRepo *repository.TeamRepository,
	hub *realtime.Hub,
) *ReflectionHandler {
	return &ReflectionHandler{
		reflectionRepo: reflectionRepo,
		teamRepo:       teamRepo,
		hub:            hub,
	}
}

type ReflectionRequest struct {
	TeamID       string     `json:"teamId" binding:"required,uuid"`
	WentWell     *string    `json:"wentWell"`
	CouldImprove *string    `json:"couldImprove"`
	ActionItems  *string    `json:"actionItems"`
	WeekOf       *time.Time `json:"weekOf"`
}

type ReflectionResponse struct {
	ID           string  `json:"id"`
	TeamID       string  `json:"teamId"`
	WeekOf       string  `json:"weekOf"`
	WentWell     *string `json:"wentWell"`
	CouldImprove *string `json:"couldImprove"`
	ActionItems  *string `json:"actionItems"`
}

func toReflectionResponse(r *model.Reflection) ReflectionResponse {
	return ReflectionResponse{
		ID:           r.ID.String(),
		TeamID:       r.TeamID.String(),
		WeekOf:       r.WeekOf.Format("2006-01-02"),
		WentWell:     r.WentWell,
		CouldImprove: r.CouldImprove,
		ActionItems:  r.ActionItems,
	}
}

// Upsert сохраняет рефлексию команды за неделю. Доступно админу или
// лиду команды; одна запись на пару (команда, неделя).
func (h *ReflectionHandler) Upsert(c *gin.Context) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Team ID is required"})
		return
	}

	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), teamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canManageTeamTickets(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only team leads can update reflections"})
		return
	}

	weekOf := time.Now()
	if req.WeekOf != nil {
		weekOf = *req.WeekOf
	}

	reflection := &model.Reflection{
		TeamID:       teamID,
		WeekOf:       weekOf,
		WentWell:     req.WentWell,
		CouldImprove: req.CouldImprove,
		ActionItems:  req.ActionItems,
	}
	if err := h.reflectionRepo.Upsert(c.Request.Context(), reflection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reflection"})
		return
	}

	h.hub.Broadcast(realtime.NewReflectionEvent(reflection))
	c.JSON(http.StatusOK, toReflectionResponse(reflection))
}

// GetRecent возвращает последние рефлексии команды
func (h *ReflectionHandler) GetRecent(c *gin.Context) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), teamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canViewTeam(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this team"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	reflections, err := h.reflectionRepo.GetRecent(c.Request.Context(), teamID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reflections"})
		return
	}

	response := make([]ReflectionResponse, len(reflections))
	for i := range reflections {
		response[i] = toReflectionResponse(&reflections[i])
	}
	c.JSON(http.StatusOK, response)
}
