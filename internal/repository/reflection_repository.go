package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teamboard/internal/model"
)

type ReflectionRepository struct {
	db *gorm.DB
}

func NewReflectionRepository(db *gorm.DB) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

// Upsert создает или обновляет рефлексию команды за неделю. Ключ
// (team, week_of) уникален, поэтому повторное сохранение внутри одной
// недели обновляет существующую запись.
func (r *ReflectionRepository) Upsert(ctx context.Context, reflection *model.Reflection) error {
	reflection.WeekOf = model.WeekStart(reflection.WeekOf)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Reflection
		err := tx.Where("team_id = ? AND week_of = ?", reflection.TeamID, reflection.WeekOf).
			First(&existing).Error

		if err == nil {
			existing.WentWell = reflection.WentWell
			existing.CouldImprove = reflection.CouldImprove
			existing.ActionItems = reflection.ActionItems
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*reflection = existing
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(reflection).Error
	})
}

// GetForWeek возвращает рефлексию команды за неделю, содержащую момент t
func (r *ReflectionRepository) GetForWeek(ctx context.Context, teamID uuid.UUID, t time.Time) (*model.Reflection, error) {
	var reflection model.Reflection
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND week_of = ?", teamID, model.WeekStart(t)).
		First(&reflection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reflection, nil
}

// GetRecent возвращает последние рефлексии команды, новые сначала
func (r *ReflectionRepository) GetRecent(ctx context.Context, teamID uuid.UUID, limit int) ([]model.Reflection, error) {
	if limit <= 0 {
		limit = 10
	}
	var reflections []model.Reflection
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("week_of DESC").
		Limit(limit).
		Find(&reflections).Error
	return reflections, err
}
