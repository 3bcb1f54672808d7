package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/model"
	"teamboard/internal/repository"
)

type CommentHandler struct {
	commentRepo *repository.CommentRepository
	ticketRepo  *repository.TicketRepository
	teamRepo    *repository.TeamRepository
}

func NewCommentHandler(
	commentRepo *repository.CommentRepository,
	ticketRepo *repository.TicketRepository,
	teamRepo *repository.TeamRepository,
) *CommentHandler {
	return &CommentHandler{
		commentRepo: commentRepo,
		ticketRepo:  ticketRepo,
		teamRepo:    teamRepo,
	}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        string `json:"id"`
	TicketID  string `json:"ticketId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func toCommentResponse(comment *model.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID.String(),
		TicketID:  comment.TicketID.String(),
		UserID:    comment.UserID.String(),
		UserName:  comment.User.FullName(),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.Format(time.RFC3339),
	}
}

// GetByTicket возвращает комментарии тикета
func (h *CommentHandler) GetByTicket(c *gin.Context) {
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

	teamRole, err := h.teamRepo.GetMemberRole(c.Request.Context(), ticket.TeamID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canViewTeam(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this team"})
		return
	}

	comments, err := h.commentRepo.GetByTicketID(c.Request.Context(), ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	response := make([]CommentResponse, len(comments))
	for i := range comments {
		response[i] = toCommentResponse(&comments[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create добавляет комментарий; доступно любому участнику команды тикета
func (h *CommentHandler) Create(c *gin.Context) {
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

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
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
	if !canViewTeam(role, teamRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this team"})
		return
	}

	comment := &model.Comment{
		TicketID: ticketID,
		UserID:   actorID,
		Content:  req.Content,
	}
	if err := h.commentRepo.Create(c.Request.Context(), comment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	created, err := h.commentRepo.GetByID(c.Request.Context(), comment.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comment"})
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(created))
}

// Delete удаляет комментарий; доступно автору или админу
func (h *CommentHandler) Delete(c *gin.Context) {
	actorID, role, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID format"})
		return
	}

	comment, err := h.commentRepo.GetByID(c.Request.Context(), commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comment"})
		}
		return
	}

	if comment.UserID != actorID && role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this comment"})
		return
	}

	if err := h.commentRepo.Delete(c.Request.Context(), commentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
