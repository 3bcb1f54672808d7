package model

import (
	"time"

	"github.com/google/uuid"
)

// Reflection хранит еженедельную ретроспективу команды, одна запись на неделю
type Reflection struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TeamID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reflections_team_week"`
	WeekOf       time.Time `gorm:"not null;uniqueIndex:idx_reflections_team_week"`
	WentWell     *string
	CouldImprove *string
	ActionItems  *string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Team Team `gorm:"foreignKey:TeamID"`
}

// WeekStart нормализует момент времени к началу недели (понедельник, UTC),
// чтобы ключ (team, week_of) совпадал для любых дат внутри одной недели.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
