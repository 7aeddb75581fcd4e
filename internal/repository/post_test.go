package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func titles(posts []*models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func backdate(t *testing.T, db *gorm.DB, post *models.Post, ago time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(post).UpdateColumn("created_at", time.Now().Add(-ago)).Error)
}

func TestPostRepository_ListStatusScope(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	testutil.CreatePost(t, db, author, "Published one", models.StatusPublished)
	testutil.CreatePost(t, db, author, "Draft one", models.StatusDraft)
	testutil.CreatePost(t, db, author, "Archived one", models.StatusArchived)
	ctx := context.Background()

	posts, total, err := repo.List(ctx, PostQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []string{"Published one"}, titles(posts))

	posts, total, err = repo.List(ctx, PostQuery{Statuses: []models.PostStatus{models.StatusDraft}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []string{"Draft one"}, titles(posts))
}

func TestPostRepository_ListSearchIsLiteralAndCaseInsensitive(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	testutil.CreatePost(t, db, author, "Go Concurrency Patterns", models.StatusPublished)
	testutil.CreatePost(t, db, author, "100% coverage myths", models.StatusPublished)
	testutil.CreatePost(t, db, author, "Gardening", models.StatusPublished)
	ctx := context.Background()

	posts, _, err := repo.List(ctx, PostQuery{Search: "concurrency", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Concurrency Patterns"}, titles(posts))

	// "%" must not act as a wildcard.
	posts, _, err = repo.List(ctx, PostQuery{Search: "0%", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% coverage myths"}, titles(posts))

	// Content is searched too; every fixture body contains "validation".
	_, total, err := repo.List(ctx, PostQuery{Search: "VALIDATION", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPostRepository_ListFiltersAndSort(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, db, "bob", models.RoleUser)
	tech := testutil.CreateCategory(t, db, "Tech")
	ctx := context.Background()

	apple := testutil.CreatePost(t, db, alice, "Apple", models.StatusPublished)
	banana := testutil.CreatePost(t, db, bob, "Banana", models.StatusPublished)
	cherry := testutil.CreatePost(t, db, alice, "Cherry", models.StatusPublished)
	backdate(t, db, apple, 3*time.Hour)
	backdate(t, db, banana, 2*time.Hour)
	backdate(t, db, cherry, time.Hour)
	require.NoError(t, db.Model(banana).UpdateColumn("category_id", tech.ID).Error)
	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PostID: banana.ID}).Error)

	posts, _, err := repo.List(ctx, PostQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cherry", "Banana", "Apple"}, titles(posts))

	posts, _, err = repo.List(ctx, PostQuery{Sort: SortOldest, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, titles(posts))

	posts, _, err = repo.List(ctx, PostQuery{Sort: SortPopular, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "Banana", posts[0].Title)
	assert.Equal(t, int64(1), posts[0].LikeCount)

	posts, _, err = repo.List(ctx, PostQuery{Sort: SortTitle, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, titles(posts))

	posts, _, err = repo.List(ctx, PostQuery{AuthorID: &alice.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cherry", "Apple"}, titles(posts))

	posts, _, err = repo.List(ctx, PostQuery{CategoryID: &tech.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Banana", posts[0].Title)
	require.NotNil(t, posts[0].Category)
	assert.Equal(t, "Tech", posts[0].Category.Name)
	require.NotNil(t, posts[0].AuthorRef)
	assert.Equal(t, "bob", posts[0].AuthorRef.Username)

	posts, total, err := repo.List(ctx, PostQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"Apple"}, titles(posts))

	posts, total, err = repo.List(ctx, PostQuery{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, posts)
}

func TestPostRepository_GetByIDDetails(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	fan := testutil.CreateUser(t, db, "fan", models.RoleUser)
	post := testutil.CreatePost(t, db, author, "Details", models.StatusPublished)
	require.NoError(t, db.Create(&models.Like{UserID: fan.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: fan.ID, Content: "nice"}).Error)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikeCount)
	assert.Equal(t, int64(1), got.CommentCount)
	assert.True(t, got.Liked)
	assert.Equal(t, "author", got.AuthorRef.Username)

	got, err = repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, got.Liked)

	_, err = repo.GetByID(ctx, 9999, 0)
	assert.Equal(t, 404, models.StatusCode(err))
}

func TestPostRepository_AvailableSlug(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	ctx := context.Background()

	slug, err := repo.AvailableSlug(ctx, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", slug)

	first := &models.Post{Title: "Hello", Content: "content body", Slug: "hello", AuthorID: author.ID, Status: models.StatusPublished}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &models.Post{Title: "Hello", Content: "content body", Slug: "hello-2", AuthorID: author.ID, Status: models.StatusPublished}))
	// A longer slug sharing the prefix is not a collision.
	require.NoError(t, repo.Create(ctx, &models.Post{Title: "Hello world", Content: "content body", Slug: "hello-world", AuthorID: author.ID, Status: models.StatusPublished}))

	slug, err = repo.AvailableSlug(ctx, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello-3", slug)

	// The post being renamed does not collide with itself.
	slug, err = repo.AvailableSlug(ctx, "hello", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", slug)

	dup := &models.Post{Title: "Hello", Content: "content body", Slug: "hello", AuthorID: author.ID, Status: models.StatusPublished}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateKey)
}

func TestPostRepository_UpdateKeepsViews(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	post := testutil.CreatePost(t, db, author, "Original", models.StatusPublished)
	ctx := context.Background()

	stale, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementViews(ctx, post.ID))
	require.NoError(t, repo.IncrementViews(ctx, post.ID))

	stale.Title = "Renamed"
	require.NoError(t, repo.Update(ctx, stale))

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, int64(2), got.Views)

	missing := &models.Post{ID: 9999, Title: "x"}
	assert.Equal(t, 404, models.StatusCode(repo.Update(ctx, missing)))
}

func TestPostRepository_DeleteRemovesEngagement(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	post := testutil.CreatePost(t, db, author, "Doomed", models.StatusPublished)
	keep := testutil.CreatePost(t, db, author, "Survivor", models.StatusPublished)
	require.NoError(t, db.Create(&models.Like{UserID: author.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: author.ID, PostID: keep.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: author.ID, Content: "bye"}).Error)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, post.ID))

	var likes, comments int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(1), likes)
	assert.Zero(t, comments)

	assert.Equal(t, 404, models.StatusCode(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_ToggleLikeIsInvolution(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	fan := testutil.CreateUser(t, db, "fan", models.RoleUser)
	post := testutil.CreatePost(t, db, author, "Likeable", models.StatusPublished)
	ctx := context.Background()

	state, err := repo.ToggleLike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, []uint{fan.ID}, state.LikedBy)
	assert.Equal(t, int64(1), state.LikeCount)

	state, err = repo.ToggleLike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Empty(t, state.LikedBy)
	assert.Zero(t, state.LikeCount)
}

func TestPostRepository_ConcurrentLikesFromDistinctUsers(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	post := testutil.CreatePost(t, db, author, "Popular", models.StatusPublished)
	ctx := context.Background()

	const fans = 8
	ids := make([]uint, fans)
	for i := range ids {
		ids[i] = testutil.CreateUser(t, db, "fan"+string(rune('a'+i)), models.RoleUser).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, fans)
	for _, id := range ids {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			if _, err := repo.ToggleLike(ctx, userID, post.ID); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	likedBy, err := repo.LikedBy(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, likedBy)
}
