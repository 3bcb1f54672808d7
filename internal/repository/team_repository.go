package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teamboard/internal/model"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		First(&team, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepository) GetAll(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		Order("name").
		Find(&teams).Error
	return teams, err
}

// GetTeamsForUser возвращает команды, в которых состоит пользователь
func (r *TeamRepository) GetTeamsForUser(ctx context.Context, userID uuid.UUID) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.name").
		Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) Update(ctx context.Context, team *model.Team) error {
	result := r.db.WithContext(ctx).Model(&model.Team{}).
		Where("id = ?", team.ID).
		Updates(map[string]interface{}{
			"name":        team.Name,
			"description": team.Description,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&model.TeamMember{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.Team{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTeamNotFound
		}
		return nil
	})
}

// AddMember добавляет пользователя в команду. Уникальность пары
// (user, team) обеспечивается составным индексом.
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	member := model.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	err := r.db.WithContext(ctx).Create(&member).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

// RemoveMember удаляет пользователя из команды
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&model.TeamMember{}).Error
}

// GetMemberRole возвращает роль пользователя в команде или пустую строку,
// если он не состоит в ней
func (r *TeamRepository) GetMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func isUniqueViolation(err error) bool {
	// 23505 is the postgres unique_violation code; gorm wraps the driver
	// error, so a substring check keeps this independent of the driver type
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
