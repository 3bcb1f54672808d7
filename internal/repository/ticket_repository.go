package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamboard/internal/model"
	"teamboard/internal/position"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// TicketPatch описывает частичное обновление тикета: nil-поле не трогается,
// для обнуляемых полей флаг Set отличает "не передано" от явного null.
type TicketPatch struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	Status         *string
	AssigneeID     *uuid.UUID
	AssigneeSet    bool
	DueDate        *time.Time
	DueDateSet     bool
	Position       *int
}

// assignDetails is the payload stored in the history row for an
// assignee change.
type assignDetails struct {
	PreviousAssignee *uuid.UUID `json:"previousAssignee"`
	NewAssignee      *uuid.UUID `json:"newAssignee"`
}

// Create inserts the ticket at the end of its (team, status) partition and
// writes the "created" history row in the same transaction. The partition
// maximum is read inside the transaction so sequential creates produce
// strictly increasing positions; a concurrent tie is persisted as-is.
func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxPos, err := partitionMax(tx, ticket.TeamID, ticket.Status)
		if err != nil {
			return err
		}
		ticket.Position = position.Append(maxPos)

		if err := tx.Create(ticket).Error; err != nil {
			return err
		}

		toStatus := ticket.Status
		history := &model.TicketHistory{
			TicketID: ticket.ID,
			UserID:   ticket.CreatedBy,
			Action:   model.HistoryActionCreated,
			ToStatus: &toStatus,
		}
		return tx.Create(history).Error
	})
}

// GetByID retrieves a ticket with its assignee and tags resolved
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Preload("Tags").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// GetWithHistory retrieves a ticket including its full audit trail,
// newest history entries first
func (r *TicketRepository) GetWithHistory(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Preload("Tags").
		Preload("Team").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		Preload("History.User").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// ListByTeam returns the team's tickets ordered for board rendering.
// Equal positions are resolved by creation time and id, so concurrent
// create ties never scramble the display order.
func (r *TicketRepository) ListByTeam(ctx context.Context, teamID uuid.UUID, status string, assigneeID *uuid.UUID) ([]model.Ticket, error) {
	q := r.db.WithContext(ctx).
		Preload("Assignee").
		Preload("Tags").
		Where("team_id = ?", teamID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if assigneeID != nil {
		q = q.Where("assignee_id = ?", *assigneeID)
	}

	var tickets []model.Ticket
	err := q.Order("status").Order("position").Order("created_at").Order("id").Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// UpdateWithHistory applies a sparse patch to the ticket and appends the
// matching history rows, all in one transaction. The row is locked for the
// read-modify-write, so two concurrent status changes on the same ticket
// serialize and each leaves its own "moved" entry.
//
// It returns the updated ticket and whether the status changed.
func (r *TicketRepository) UpdateWithHistory(ctx context.Context, id, actorID uuid.UUID, patch TicketPatch) (*model.Ticket, bool, error) {
	var statusChanged bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket model.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ticket, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.DescriptionSet {
			updates["description"] = patch.Description
		}
		if patch.DueDateSet {
			updates["due_date"] = patch.DueDate
		}
		if patch.Position != nil {
			updates["position"] = *patch.Position
		}

		if patch.Status != nil && *patch.Status != ticket.Status {
			statusChanged = true
			updates["status"] = *patch.Status

			fromStatus := ticket.Status
			toStatus := *patch.Status
			history := &model.TicketHistory{
				TicketID:   ticket.ID,
				UserID:     actorID,
				Action:     model.HistoryActionMoved,
				FromStatus: &fromStatus,
				ToStatus:   &toStatus,
			}
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}

		if patch.AssigneeSet && !uuidPtrEqual(patch.AssigneeID, ticket.AssigneeID) {
			updates["assignee_id"] = patch.AssigneeID

			raw, err := json.Marshal(assignDetails{
				PreviousAssignee: ticket.AssigneeID,
				NewAssignee:      patch.AssigneeID,
			})
			if err != nil {
				return err
			}
			details := string(raw)
			history := &model.TicketHistory{
				TicketID: ticket.ID,
				UserID:   actorID,
				Action:   model.HistoryActionAssigned,
				Details:  &details,
			}
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			return nil
		}

		result := tx.Model(&model.Ticket{}).Where("id = ?", ticket.ID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, statusChanged, nil
}

// Move places the ticket at the given index of the destination status column
// and renumbers the neighbours of both affected partitions transactionally.
// The client supplies a destination index, never the literal ordering key.
func (r *TicketRepository) Move(ctx context.Context, id, actorID uuid.UUID, newStatus string, newPosition int) (*model.Ticket, bool, error) {
	var statusChanged bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket model.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ticket, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}

		oldStatus := ticket.Status
		oldPosition := ticket.Position
		statusChanged = oldStatus != newStatus

		var count int64
		if err := tx.Model(&model.Ticket{}).
			Where("team_id = ? AND status = ?", ticket.TeamID, newStatus).
			Count(&count).Error; err != nil {
			return err
		}
		if statusChanged {
			newPosition = position.Clamp(newPosition, int(count))
		} else {
			newPosition = position.Clamp(newPosition, int(count)-1)
		}

		if statusChanged {
			// Close the gap in the old column
			if err := tx.Model(&model.Ticket{}).
				Where("team_id = ? AND status = ? AND position > ?", ticket.TeamID, oldStatus, oldPosition).
				Update("position", gorm.Expr("position - 1")).Error; err != nil {
				return err
			}

			// Make room in the new column
			if err := tx.Model(&model.Ticket{}).
				Where("team_id = ? AND status = ? AND position >= ?", ticket.TeamID, newStatus, newPosition).
				Update("position", gorm.Expr("position + 1")).Error; err != nil {
				return err
			}

			history := &model.TicketHistory{
				TicketID:   ticket.ID,
				UserID:     actorID,
				Action:     model.HistoryActionMoved,
				FromStatus: &oldStatus,
				ToStatus:   &newStatus,
			}
			if err := tx.Create(history).Error; err != nil {
				return err
			}

			ticket.Status = newStatus
			ticket.Position = newPosition
		} else if oldPosition != newPosition {
			if oldPosition < newPosition {
				// Moving down: shift the tickets in between up
				if err := tx.Model(&model.Ticket{}).
					Where("team_id = ? AND status = ? AND position > ? AND position <= ?",
						ticket.TeamID, newStatus, oldPosition, newPosition).
					Update("position", gorm.Expr("position - 1")).Error; err != nil {
					return err
				}
			} else {
				// Moving up: shift the tickets in between down
				if err := tx.Model(&model.Ticket{}).
					Where("team_id = ? AND status = ? AND position >= ? AND position < ?",
						ticket.TeamID, newStatus, newPosition, oldPosition).
					Update("position", gorm.Expr("position + 1")).Error; err != nil {
					return err
				}
			}
			ticket.Position = newPosition
		} else {
			return nil
		}

		return tx.Save(&ticket).Error
	})
	if err != nil {
		return nil, false, err
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, statusChanged, nil
}

// Delete removes a ticket together with its comments, tag links and history
func (r *TicketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&model.TicketHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM ticket_tags WHERE ticket_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.Ticket{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTicketNotFound
		}
		return nil
	})
}

// AddTag links a tag to a ticket, ignoring duplicates
func (r *TicketRepository) AddTag(ctx context.Context, ticketID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO ticket_tags (ticket_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		ticketID, tagID,
	).Error
}

// RemoveTag unlinks a tag from a ticket
func (r *TicketRepository) RemoveTag(ctx context.Context, ticketID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		"DELETE FROM ticket_tags WHERE ticket_id = ? AND tag_id = ?",
		ticketID, tagID,
	).Error
}

// GetMaxPosition returns the highest position in a (team, status) partition,
// 0 when the partition is empty
func (r *TicketRepository) GetMaxPosition(ctx context.Context, teamID uuid.UUID, status string) (int, error) {
	return partitionMax(r.db.WithContext(ctx), teamID, status)
}

func partitionMax(db *gorm.DB, teamID uuid.UUID, status string) (int, error) {
	var maxPosition struct {
		Max int
	}
	err := db.Model(&model.Ticket{}).
		Select("COALESCE(MAX(position), 0) as max").
		Where("team_id = ? AND status = ?", teamID, status).
		Scan(&maxPosition).Error

	return maxPosition.Max, err
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
