package model

import (
	"time"

	"github.com/google/uuid"
)

// Действия, фиксируемые в истории тикета
const (
	HistoryActionCreated  = "created"
	HistoryActionMoved    = "moved"
	HistoryActionAssigned = "assigned"
)

// TicketHistory is an append-only audit row. Rows are written in the same
// transaction as the ticket change they describe and are never updated.
type TicketHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TicketID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID `gorm:"type:uuid;not null"`
	Action     string    `gorm:"not null;check:action IN ('created', 'moved', 'assigned')"`
	FromStatus *string
	ToStatus   *string
	Details    *string
	Timestamp  time.Time `gorm:"autoCreateTime;index"`

	User User `gorm:"foreignKey:UserID"`
}

// TableName keeps the singular table name instead of GORM's "ticket_histories".
func (TicketHistory) TableName() string {
	return "ticket_history"
}
