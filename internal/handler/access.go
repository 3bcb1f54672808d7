package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamboard/internal/middleware"
	"teamboard/internal/model"
)

// canEditTicket определяет, может ли актор изменять тикет: админ,
// лид команды тикета или текущий исполнитель. Снятие себя с тикета
// отдельно не разрешается — действует общий набор прав.
func canEditTicket(globalRole, teamRole string, isAssignee bool) bool {
	return globalRole == model.RoleAdmin ||
		teamRole == model.TeamRoleLead ||
		isAssignee
}

// canManageTeamTickets определяет, может ли актор создавать и удалять
// тикеты команды: строго админ или лид, исполнителю этого недостаточно
func canManageTeamTickets(globalRole, teamRole string) bool {
	return globalRole == model.RoleAdmin || teamRole == model.TeamRoleLead
}

// canViewTeam определяет доступ на чтение: админ или любой участник
func canViewTeam(globalRole, teamRole string) bool {
	return globalRole == model.RoleAdmin || teamRole != ""
}

// authUser достает идентификатор и глобальную роль актора из контекста
// запроса; false означает, что middleware аутентификации не отработал
func authUser(c *gin.Context) (uuid.UUID, string, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return uuid.Nil, "", false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	return userID, c.GetString(middleware.RoleKey), true
}
