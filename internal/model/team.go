package model

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Members []TeamMember `gorm:"foreignKey:TeamID"`
	Tickets []Ticket     `gorm:"foreignKey:TeamID"`
}

// TeamMember представляет членство пользователя в команде
type TeamMember struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_members_user_team"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_members_user_team"`
	Role      string    `gorm:"not null;check:role IN ('LEAD', 'MEMBER')"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Team Team `gorm:"foreignKey:TeamID"`
	User User `gorm:"foreignKey:UserID"`
}

// Роли участников команды
const (
	TeamRoleLead   = "LEAD"   // может управлять тикетами и рефлексиями команды
	TeamRoleMember = "MEMBER" // может работать с назначенными на него тикетами
)
