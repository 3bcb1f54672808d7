package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teamboard/internal/model"
)

type AnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (r *AnnouncementRepository) Create(ctx context.Context, a *model.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Announcement, error) {
	var a model.Announcement
	err := r.db.WithContext(ctx).Preload("Creator").First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetAll возвращает объявления: закрепленные сначала, затем новые
func (r *AnnouncementRepository) GetAll(ctx context.Context) ([]model.Announcement, error) {
	var announcements []model.Announcement
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Order("pinned DESC").
		Order("created_at DESC").
		Find(&announcements).Error
	return announcements, err
}

func (r *AnnouncementRepository) Update(ctx context.Context, a *model.Announcement) error {
	result := r.db.WithContext(ctx).Model(&model.Announcement{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"title":   a.Title,
			"content": a.Content,
			"pinned":  a.Pinned,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Announcement{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}
