package repository_test

import (
	"context"
	"testing"
	"time"

	"teamboard/internal/model"
	"teamboard/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func ticketRows(id, teamID uuid.UUID, status string, pos int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "team_id", "title", "description", "status", "position",
		"assignee_id", "created_by", "due_date", "created_at", "updated_at",
	}).AddRow(id.String(), teamID.String(), "Fix login redirect", "", status, pos,
		nil, uuid.New().String(), nil, now, now)
}

func emptyTicketTagRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ticket_id", "tag_id"})
}

func TestTicketRepository_Create_AppendsToPartitionEnd(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	teamID := uuid.New()
	ticket := &model.Ticket{
		TeamID:    teamID,
		Title:     "Fix login redirect",
		Status:    model.StatusBacklog,
		CreatedBy: uuid.New(),
	}

	mock.ExpectBegin()
	// Максимум позиции читается внутри транзакции
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) as max FROM "tickets"`).
		WithArgs(teamID, model.StatusBacklog).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	// Строка истории "created" пишется в той же транзакции
	mock.ExpectQuery(`INSERT INTO "ticket_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// Act
	err := repo.Create(context.Background(), ticket)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 4, ticket.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Create_EmptyPartitionStartsAtOne(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	teamID := uuid.New()
	ticket := &model.Ticket{
		TeamID:    teamID,
		Title:     "First ticket",
		Status:    model.StatusDoing,
		CreatedBy: uuid.New(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) as max FROM "tickets"`).
		WithArgs(teamID, model.StatusDoing).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO "ticket_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// Act
	err := repo.Create(context.Background(), ticket)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 1, ticket.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .*`).
		WithArgs(ticketID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	ticket, err := repo.GetByID(context.Background(), ticketID)

	// Assert
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	assert.Nil(t, ticket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_UpdateWithHistory_StatusChange(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	teamID := uuid.New()
	actorID := uuid.New()
	newStatus := model.StatusDone

	mock.ExpectBegin()
	// Строка блокируется на время read-modify-write
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .* FOR UPDATE`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusDoing, 2))
	// Смена статуса оставляет запись "moved" в той же транзакции
	mock.ExpectQuery(`INSERT INTO "ticket_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Перечитывание обновленного тикета
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .*`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, newStatus, 2))
	mock.ExpectQuery(`SELECT .* FROM "ticket_tags"`).
		WillReturnRows(emptyTicketTagRows())

	// Act
	updated, statusChanged, err := repo.UpdateWithHistory(context.Background(), ticketID, actorID, repository.TicketPatch{
		Status: &newStatus,
	})

	// Assert
	assert.NoError(t, err)
	assert.True(t, statusChanged)
	assert.Equal(t, newStatus, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_UpdateWithHistory_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	title := "New title"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .* FOR UPDATE`).
		WithArgs(ticketID, 1).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectRollback()

	// Act
	_, _, err := repo.UpdateWithHistory(context.Background(), ticketID, uuid.New(), repository.TicketPatch{
		Title: &title,
	})

	// Assert
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_UpdateWithHistory_ConcurrentDeleteConflict(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	teamID := uuid.New()
	title := "New title"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .* FOR UPDATE`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusBacklog, 1))
	// Конкурентный писатель удалил строку между чтением и записью
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	// Act
	_, _, err := repo.UpdateWithHistory(context.Background(), ticketID, uuid.New(), repository.TicketPatch{
		Title: &title,
	})

	// Assert
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Move_WithinColumnRenumbersNeighbours(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	teamID := uuid.New()
	actorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .* FOR UPDATE`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusDoing, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WithArgs(teamID, model.StatusDoing).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	// Тикеты между старой и новой позицией сдвигаются вверх
	mock.ExpectExec(`UPDATE "tickets" SET "position"=position - 1`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .*`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusDoing, 3))
	mock.ExpectQuery(`SELECT .* FROM "ticket_tags"`).
		WillReturnRows(emptyTicketTagRows())

	// Act
	updated, statusChanged, err := repo.Move(context.Background(), ticketID, actorID, model.StatusDoing, 3)

	// Assert
	assert.NoError(t, err)
	assert.False(t, statusChanged)
	assert.Equal(t, 3, updated.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Move_AcrossColumns(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	teamID := uuid.New()
	actorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .* FOR UPDATE`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusDoing, 2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WithArgs(teamID, model.StatusDone).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// Закрываем дыру в старой колонке
	mock.ExpectExec(`UPDATE "tickets" SET "position"=position - 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Освобождаем место в новой
	mock.ExpectExec(`UPDATE "tickets" SET "position"=position \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "ticket_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE id = .*`).
		WithArgs(ticketID, 1).
		WillReturnRows(ticketRows(ticketID, teamID, model.StatusDone, 1))
	mock.ExpectQuery(`SELECT .* FROM "ticket_tags"`).
		WillReturnRows(emptyTicketTagRows())

	// Act
	updated, statusChanged, err := repo.Move(context.Background(), ticketID, actorID, model.StatusDone, 1)

	// Assert
	assert.NoError(t, err)
	assert.True(t, statusChanged)
	assert.Equal(t, model.StatusDone, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Delete_CascadesDependents(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "comments"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "ticket_history"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM ticket_tags`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "tickets"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := repo.Delete(context.Background(), ticketID)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Delete_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "comments"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "ticket_history"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM ticket_tags`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "tickets"`).
		WithArgs(ticketID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	// Act
	err := repo.Delete(context.Background(), ticketID)

	// Assert
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_AddTag_IgnoresDuplicates(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	ticketID := uuid.New()
	tagID := uuid.New()

	mock.ExpectExec(`INSERT INTO ticket_tags .* ON CONFLICT DO NOTHING`).
		WithArgs(ticketID, tagID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Act
	err := repo.AddTag(context.Background(), ticketID, tagID)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_GetMaxPosition_EmptyPartition(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTicketRepository(gormDB)

	teamID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) as max FROM "tickets"`).
		WithArgs(teamID, model.StatusDone).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

	// Act
	maxPos, err := repo.GetMaxPosition(context.Background(), teamID, model.StatusDone)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, maxPos)
	assert.NoError(t, mock.ExpectationsWereMet())
}
