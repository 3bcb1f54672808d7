package model

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name  string    `gorm:"uniqueIndex;not null"`
	Color string    `gorm:"not null"`

	Tickets []Ticket `gorm:"many2many:ticket_tags"`
}
