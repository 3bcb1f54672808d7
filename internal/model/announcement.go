package model

import (
	"time"

	"github.com/google/uuid"
)

// Announcement видна всем пользователям независимо от команды
type Announcement struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	Pinned    bool      `gorm:"not null;default:false"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Creator User `gorm:"foreignKey:CreatedBy"`
}
