// Package testutil provides shared database fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"inkwell/internal/content"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

var slugSeq atomic.Int64

// NewSQLiteDB opens a migrated SQLite database private to the test. A single
// connection serializes concurrent callers so SQLite never reports a locked table.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkwell_test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts an active user whose password is TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post with a unique slug derived from its title.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string, status models.PostStatus) *models.Post {
	t.Helper()
	body := "Body of " + title + " with enough words to pass validation."
	post := &models.Post{
		Title:    title,
		Content:  body,
		Slug:     fmt.Sprintf("%s-%d", content.Slugify(title), slugSeq.Add(1)),
		Excerpt:  content.Excerpt(body),
		AuthorID: author.ID,
		Tags:     []string{},
		Status:   status,
	}
	require.NoError(t, db.Omit("Author", "Category").Create(post).Error)
	return post
}

// CreateCategory inserts a category.
func CreateCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: content.Slugify(name), Color: models.DefaultCategoryColor}
	require.NoError(t, db.Create(category).Error)
	return category
}
