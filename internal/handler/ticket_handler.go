package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/model"
	"teamboard/internal/realtime"
	"teamboard/internal/repository"
)

// TicketHandler — единственный путь записи тикетов: проверяет права
// актора, фиксирует изменение в хранилище и рассылает событие комнате
// команды после коммита
type TicketHandler struct {
	ticketRepo *repository.TicketRepository
	teamRepo   *repository.TeamRepository
	userRepo   repository.UserRepositoryInterface
	hub        *realtime.Hub
}

func NewTicketHandler(
	ticketRepo *repository.TicketRepository,
	teamRepo *repository.TeamRepository,
	userRepo repository.UserRepositoryInterface,
	hub *realtime.Hub,
) *TicketHandler {
	return &TicketHandler{
		ticketRepo: ticketRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		hub:        hub,
	}
}

// CreateTicketRequest представляет запрос на создание тикета
type CreateTicketRequest struct {
	Title       string     `json:"title" binding:"required"`
	TeamID      string     `json:"teamId" binding:"required,uuid"`
	Description string     `json:"description"`
	AssigneeID  *string    `json:"assigneeId"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTicketRequest представляет частичное обновление тикета:
// отсутствующее поле не меняется, явный null обнуляет поле
type UpdateTicketRequest struct {
	Title       *string        `json:"title"`
	Description OptionalString `json:"description"`
	Status      *string        `json:"status"`
	AssigneeID  OptionalUUID   `json:"assigneeId"`
	DueDate     OptionalTime   `json:"dueDate"`
	Position    *int           `json:"position"`
}

// MoveTicketRequest представляет перенос тикета в колонку на позицию
type MoveTicketRequest struct {
	Status   string `json:"status" binding:"required"`
	Position int    `json:"position" binding:"required,min=1"`
}

// TicketResponse представляет ответ с данными тикета
type TicketResponse struct {
	ID          string            `json:"id"`
	TeamID      string            `json:"teamId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Position    int               `json:"position"`
	Assignee    *AssigneeResponse `json:"assignee"`
	CreatedBy   string            `json:"createdBy"`
	DueDate     *string           `json:"dueDate,omitempty"`
	Tags        []TagResponse     `json:"tags,omitempty"`
	History     []HistoryResponse `json:"history,omitempty"`
}

// AssigneeResponse представляет исполнителя тикета
type AssigneeResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Color     string `json:"color"`
}

// TagResponse представляет метку тикета
type TagResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// HistoryResponse представляет запись истории тикета
type HistoryResponse struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	FromStatus *string `json:"fromStatus,omitempty"`
	ToStatus   *string `json:"toStatus,omitempty"`
	Details    *string `json:"details,omitempty"`
	UserName   string  `json:"userName"`
	Timestamp  string  `json:"timestamp"`
}

func toTicketResponse(t *model.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID.String(),
		TeamID:      t.TeamID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Position:    t.Position,
		CreatedBy:   t.CreatedBy.String(),
	}

	if t.DueDate != nil {
		due := t.DueDate.Format(time.RFC3339)
		resp.DueDate = &due
	}

	if t.Assignee != nil && t.AssigneeID != nil {
		resp.Assignee = &AssigneeResponse{
			ID:        t.Assignee.ID.String(),
			FirstName: t.Assignee.FirstName,
			LastName:  t.Assignee.LastName,
			Color:     t.Assignee.Color,
		}
	}

	if len(t.Tags) > 0 {
		tags := make([]TagResponse, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = TagResponse{ID: tag.ID.String(), Name: tag.Name, Color: tag.Color}
		}
		resp.Tags = tags
	}

	if len(t.History) > 0 {
		history := make([]HistoryResponse, len(t.History))
		for i, entry := range t.History {
			history[i] = HistoryResponse{
				ID:         entry.ID.String(),
				Action:     entry.Action,
				FromStatus: entry.FromStatus,
				ToStatus:   entry.ToStatus,
				Details:    entry.Details,
				UserName:   entry.User.FullName(),
				Timestamp:  entry.Timestamp.Format(time.RFC3339),
			}
		}
		resp.History = history
	}

	return resp
}

// Create создает новый тикет в конце колонки
func (h *TicketHandler) Create(c *gin.Context) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err, "Title and team ID are required")})
		return
	}

	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID format"})
		return
	}

	status := req.Status
	if status == "" {
		status = model.StatusBacklog
	}
	if !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	// Команда должна существовать
	if _, err := h.teamRepo.GetByID(c.Request.Context(), teamID); err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		}
		return
	}

	// Создавать тикеты могут только админ или лид команды
	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), teamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canManageTeamTickets(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to create tickets for this team"})
		return
	}

	var assigneeID *uuid.UUID
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		id, err := uuid.Parse(*req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		assigneeID = &id
	}

	ticket := &model.Ticket{
		TeamID:      teamID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		AssigneeID:  assigneeID,
		CreatedBy:   actorID,
		DueDate:     req.DueDate,
	}

	// Позиция и строка истории "created" назначаются внутри транзакции
	if err := h.ticketRepo.Create(c.Request.Context(), ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	created, err := h.ticketRepo.GetByID(c.Request.Context(), ticket.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve created ticket"})
		return
	}

	h.emitTicketEvent(c, realtime.TicketCreated, created, actorID)
	c.JSON(http.StatusCreated, toTicketResponse(created))
}

// GetByID получает тикет вместе с историей изменений
func (h *TicketHandler) GetByID(c *gin.Context) {
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

	ticket, err := h.ticketRepo.GetWithHistory(c.Request.Context(), ticketID)
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
	if !canViewTeam(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this team"})
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

// GetByTeam возвращает тикеты команды для отрисовки доски
func (h *TicketHandler) GetByTeam(c *gin.Context) {
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

	status := c.Query("status")
	if status != "" && !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	var assigneeID *uuid.UUID
	if raw := c.Query("assigneeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		assigneeID = &id
	}

	tickets, err := h.ticketRepo.ListByTeam(c.Request.Context(), teamID, status, assigneeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tickets"})
		return
	}

	response := make([]TicketResponse, len(tickets))
	for i := range tickets {
		response[i] = toTicketResponse(&tickets[i])
	}
	c.JSON(http.StatusOK, response)
}

// Update применяет частичное обновление тикета
func (h *TicketHandler) Update(c *gin.Context) {
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

	ticket, err := h.ticketRepo.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	// Обновлять могут админ, лид команды или текущий исполнитель
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

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Title != nil && *req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
		return
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	patch := repository.TicketPatch{
		Title:          req.Title,
		Description:    req.Description.Value,
		DescriptionSet: req.Description.Set,
		Status:         req.Status,
		AssigneeID:     req.AssigneeID.Value,
		AssigneeSet:    req.AssigneeID.Set,
		DueDate:        req.DueDate.Value,
		DueDateSet:     req.DueDate.Set,
		Position:       req.Position,
	}

	updated, statusChanged, err := h.ticketRepo.UpdateWithHistory(c.Request.Context(), ticketID, actorID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Ticket was modified concurrently, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		}
		return
	}

	eventType := realtime.TicketUpdated
	if statusChanged {
		eventType = realtime.TicketMoved
	}
	h.emitTicketEvent(c, eventType, updated, actorID)
	c.JSON(http.StatusOK, toTicketResponse(updated))
}

// Move переносит тикет в колонку на указанный индекс, перенумеровывая
// соседей обеих затронутых колонок
func (h *TicketHandler) Move(c *gin.Context) {
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

	var req MoveTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err, "Status and position are required")})
		return
	}
	if !model.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
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
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to move this ticket"})
		return
	}

	moved, statusChanged, err := h.ticketRepo.Move(c.Request.Context(), ticketID, actorID, req.Status, req.Position)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Ticket was modified concurrently, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move ticket"})
		}
		return
	}

	eventType := realtime.TicketUpdated
	if statusChanged {
		eventType = realtime.TicketMoved
	}
	h.emitTicketEvent(c, eventType, moved, actorID)
	c.JSON(http.StatusOK, toTicketResponse(moved))
}

// Delete удаляет тикет вместе с комментариями, метками и историей
func (h *TicketHandler) Delete(c *gin.Context) {
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

	ticket, err := h.ticketRepo.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	// Удалять могут строго админ или лид, исполнителю нельзя
	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), ticket.TeamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canManageTeamTickets(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this ticket"})
		return
	}

	if err := h.ticketRepo.Delete(c.Request.Context(), ticketID); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete ticket"})
		}
		return
	}

	// Подписчики получают финальный снимок удаленного тикета
	h.emitTicketEvent(c, realtime.TicketDeleted, ticket, actorID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// emitTicketEvent рассылает событие комнате команды после успешного
// коммита. Ошибка доставки никогда не влияет на ответ вызывающему.
func (h *TicketHandler) emitTicketEvent(c *gin.Context, eventType string, ticket *model.Ticket, actorID uuid.UUID) {
	actor, err := h.userRepo.GetByID(c.Request.Context(), actorID)
	if err != nil || actor == nil {
		log.Printf("ticket event %s: failed to resolve actor %s: %v", eventType, actorID, err)
		actor = &model.User{ID: actorID}
	}
	h.hub.Broadcast(realtime.NewTicketEvent(eventType, ticket, actor))
}
