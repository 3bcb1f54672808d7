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
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	assert.NoError(t, err)

	return gormDB, mock
}

func userRows(id uuid.UUID, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "hashed_password", "first_name", "last_name", "color", "role", "created_at"}).
		AddRow(id.String(), email, "hashed_password", "Ann", "Petrova", "#6366f1", model.RoleUser, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestUserRepository_Create(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	user := &model.User{
		ID:             userID,
		Email:          "test@example.com",
		HashedPassword: "hashed_password",
		FirstName:      "Ann",
		LastName:       "Petrova",
	}

	// Ожидаем SQL запрос на создание пользователя
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectCommit()

	// Act
	err := userRepo.Create(context.Background(), user)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_Found(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	email := "test@example.com"

	// Ожидаем SQL запрос на поиск пользователя по email
	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .*`).
		WithArgs(email, 1).
		WillReturnRows(userRows(userID, email))

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, "Ann Petrova", user.FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	email := "nonexistent@example.com"

	// Ожидаем SQL запрос на поиск пользователя по email - не найден
	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .*`).
		WithArgs(email, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	assert.NoError(t, err) // Метод не возвращает ошибку при отсутствии записи
	assert.Nil(t, user)    // Но возвращает nil пользователя
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_Found(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE id = .*`).
		WithArgs(userID, 1).
		WillReturnRows(userRows(userID, "test@example.com"))

	// Act
	user, err := userRepo.GetByID(context.Background(), userID)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE id = .*`).
		WithArgs(userID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	user, err := userRepo.GetByID(context.Background(), userID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetAll(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "users" ORDER BY first_name, last_name`).
		WillReturnRows(userRows(uuid.New(), "a@example.com"))

	// Act
	users, err := userRepo.GetAll(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	user := &model.User{
		ID:             uuid.New(),
		Email:          "test@example.com",
		HashedPassword: "hashed_password",
		FirstName:      "Ann",
		LastName:       "Petrova",
		Role:           model.RoleAdmin,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := userRepo.Update(context.Background(), user)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
