package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/model"
	"teamboard/internal/repository"
)

type TeamHandler struct {
	teamRepo *repository.TeamRepository
	userRepo repository.UserRepositoryInterface
}

func NewTeamHandler(teamRepo *repository.TeamRepository, userRepo repository.UserRepositoryInterface) *TeamHandler {
	return &TeamHandler{teamRepo: teamRepo, userRepo: userRepo}
}

type TeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,oneof=LEAD MEMBER"`
}

type TeamMemberResponse struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Color     string `json:"color"`
	Role      string `json:"role"`
}

type TeamResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Members     []TeamMemberResponse `json:"members"`
}

func toTeamResponse(t *model.Team) TeamResponse {
	members := make([]TeamMemberResponse, len(t.Members))
	for i, m := range t.Members {
		members[i] = TeamMemberResponse{
			UserID:    m.UserID.String(),
			FirstName: m.User.FirstName,
			LastName:  m.User.LastName,
			Color:     m.User.Color,
			Role:      m.Role,
		}
	}
	return TeamResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Members:     members,
	}
}

// Create создает команду, доступно только админу
func (h *TeamHandler) Create(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	team := &model.Team{Name: req.Name, Description: req.Description}
	if err := h.teamRepo.Create(c.Request.Context(), team); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team"})
		return
	}

	c.JSON(http.StatusCreated, toTeamResponse(team))
}

// GetAll возвращает команды: все для админа, иначе только свои
func (h *TeamHandler) GetAll(c *gin.Context) {
	userID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var (
		teams []model.Team
		err   error
	)
	if role == model.RoleAdmin {
		teams, err = h.teamRepo.GetAll(c.Request.Context())
	} else {
		teams, err = h.teamRepo.GetTeamsForUser(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve teams"})
		return
	}

	response := make([]TeamResponse, len(teams))
	for i := range teams {
		response[i] = toTeamResponse(&teams[i])
	}
	c.JSON(http.StatusOK, response)
}

func (h *TeamHandler) GetByID(c *gin.Context) {
	userID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	team, err := h.teamRepo.GetByID(c.Request.Context(), teamID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		}
		return
	}

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), teamID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canViewTeam(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this team"})
		return
	}

	c.JSON(http.StatusOK, toTeamResponse(team))
}

// Update изменяет название и описание команды, доступно только админу
func (h *TeamHandler) Update(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	team := &model.Team{ID: teamID, Name: req.Name, Description: req.Description}
	if err := h.teamRepo.Update(c.Request.Context(), team); err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update team"})
		}
		return
	}

	updated, err := h.teamRepo.GetByID(c.Request.Context(), teamID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(updated))
}

// Delete удаляет команду, доступно только админу
func (h *TeamHandler) Delete(c *gin.Context) {
	_, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	if err := h.teamRepo.Delete(c.Request.Context(), teamID); err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete team"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddMember добавляет пользователя в команду. Доступно админу или лиду
// этой команды; пользователь может состоять в команде только один раз.
func (h *TeamHandler) AddMember(c *gin.Context) {
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
	if !canManageTeamTickets(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to manage this team"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and role are required"})
		return
	}

	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.teamRepo.AddMember(c.Request.Context(), teamID, memberID, req.Role); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			c.JSON(http.StatusConflict, gin.H{"error": "User is already a member of this team"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// RemoveMember удаляет пользователя из команды
func (h *TeamHandler) RemoveMember(c *gin.Context) {
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

	memberID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), teamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canManageTeamTickets(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to manage this team"})
		return
	}

	if err := h.teamRepo.RemoveMember(c.Request.Context(), teamID, memberID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
