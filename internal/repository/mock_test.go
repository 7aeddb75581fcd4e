package repository

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPostRepository_IncrementViews(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		rowsAffected int64
		wantNotFound bool
	}{
		{name: "Success", rowsAffected: 1},
		{name: "Missing post", rowsAffected: 0, wantNotFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "posts" SET "views"=views \+ \$1 WHERE id = \$2`).
				WithArgs(1, 7).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			mock.ExpectCommit()

			err := repo.IncrementViews(ctx, 7)
			if tt.wantNotFound {
				assert.Equal(t, 404, models.StatusCode(err))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "taken", Email: "taken@example.com", Role: models.RoleUser})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_DriverFailureIsInternal(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.GetByID(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, 500, models.StatusCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchAnyColumn_PostgresUsesILIKE(t *testing.T) {
	db, _ := setupMockDB(t)

	cond, args := matchAnyColumn(db, "50%_off", "posts.title", "posts.content")
	assert.Equal(t, `(posts.title ILIKE ? ESCAPE '\' OR posts.content ILIKE ? ESCAPE '\')`, cond)
	assert.Equal(t, []interface{}{`%50\%\_off%`, `%50\%\_off%`}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrDuplicateKey, true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: posts.slug"), true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
