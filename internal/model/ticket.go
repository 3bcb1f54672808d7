package model

import (
	"time"

	"github.com/google/uuid"
)

// Статусы тикета (колонки доски)
const (
	StatusBacklog = "BACKLOG"
	StatusDoing   = "DOING"
	StatusDone    = "DONE"
)

// ValidStatus reports whether s is one of the board columns.
func ValidStatus(s string) bool {
	return s == StatusBacklog || s == StatusDoing || s == StatusDone
}

type Ticket struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TeamID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string
	Status      string     `gorm:"not null;default:'BACKLOG';check:status IN ('BACKLOG', 'DOING', 'DONE');index:idx_tickets_team_status,composite:team_status"`
	Position    int        `gorm:"not null"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	DueDate     *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Team     Team            `gorm:"foreignKey:TeamID"`
	Assignee *User           `gorm:"foreignKey:AssigneeID"`
	Creator  User            `gorm:"foreignKey:CreatedBy"`
	Tags     []Tag           `gorm:"many2many:ticket_tags;constraint:OnDelete:CASCADE"`
	Comments []Comment       `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
	History  []TicketHistory `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}
