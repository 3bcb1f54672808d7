package model

import (
	"time"

	"github.com/google/uuid"
)

// Глобальные роли пользователей
const (
	RoleAdmin = "ADMIN" // полный доступ ко всем командам
	RoleUser  = "USER"  // доступ определяется членством в командах
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	FirstName      string    `gorm:"not null"`
	LastName       string    `gorm:"not null"`
	Color          string    `gorm:"not null;default:'#6366f1'"`
	Role           string    `gorm:"not null;default:'USER';check:role IN ('ADMIN', 'USER')"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// FullName возвращает отображаемое имя пользователя
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
