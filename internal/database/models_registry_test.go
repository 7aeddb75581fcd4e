package database

import (
	"testing"

	modelspkg "inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesLikes(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.Like); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Like")
}

func TestPersistentModels_AutoMigrateSkipsComputedColumns(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	m := db.Migrator()
	assert.True(t, m.HasColumn(&modelspkg.Post{}, "views"))
	assert.True(t, m.HasColumn(&modelspkg.Post{}, "slug"))
	assert.False(t, m.HasColumn(&modelspkg.Post{}, "like_count"))
	assert.False(t, m.HasColumn(&modelspkg.Post{}, "comment_count"))
	assert.False(t, m.HasColumn(&modelspkg.Post{}, "liked"))
	assert.True(t, m.HasIndex(&modelspkg.Like{}, "idx_likes_user_post"))
}
