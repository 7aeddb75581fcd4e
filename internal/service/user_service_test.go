package service

import (
	"context"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newUserFixture(t *testing.T) (*UserService, *gorm.DB, *auth.TokenService) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	tokens := auth.NewTokenService(testSecret)
	posts := NewPostService(
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		repository.NewCategoryRepository(db),
		nil, nil,
	)
	return NewUserService(repository.NewUserRepository(db), tokens, posts, bcrypt.MinCost), db, tokens
}

func TestRegister(t *testing.T) {
	svc, _, tokens := newUserFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "writer_1", Email: " Writer@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.True(t, res.User.IsActive)
	assert.Equal(t, "writer@example.com", res.User.Email)
	assert.NotEqual(t, "secret1", res.User.Password)

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "writer@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)
	assert.EqualError(t, err, "Email already registered")

	_, err = svc.Register(ctx, RegisterInput{Username: "writer_1", Email: "new@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)
	assert.EqualError(t, err, "Username already taken")

	_, err = svc.Register(ctx, RegisterInput{Username: "a!", Email: "nope", Password: "123"})
	assertCode(t, err, models.CodeValidation)
}

func TestLogin(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "carol", models.RoleUser)

	res, err := svc.Login(ctx, "CAROL@example.com", testutil.TestPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, user.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost@example.com", testutil.TestPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	_, err = svc.Login(ctx, user.Email, testutil.TestPassword)
	assert.ErrorIs(t, err, auth.ErrUserDeactivated)
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, db, "root", models.RoleAdmin)
	dave := testutil.CreateUser(t, db, "dave", models.RoleUser)
	erin := testutil.CreateUser(t, db, "erin", models.RoleUser)

	got, err := svc.GetUser(ctx, dave, dave.ID)
	require.NoError(t, err)
	assert.Equal(t, "dave", got.Username)

	_, err = svc.GetUser(ctx, erin, dave.ID)
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.GetUser(ctx, root, dave.ID)
	require.NoError(t, err)

	_, err = svc.GetUser(ctx, root, 999)
	assertCode(t, err, models.CodeNotFound)
	assert.EqualError(t, err, "User not found: User 999 does not exist")
}

func TestUpdateUser(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	frank := testutil.CreateUser(t, db, "frank", models.RoleUser)
	testutil.CreateUser(t, db, "grace", models.RoleUser)

	updated, err := svc.UpdateUser(ctx, frank.ID, UpdateUserInput{Role: strPtr("admin"), IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)

	_, err = svc.UpdateUser(ctx, frank.ID, UpdateUserInput{Username: strPtr("grace")})
	assert.EqualError(t, err, "Username already taken")
	_, err = svc.UpdateUser(ctx, frank.ID, UpdateUserInput{Email: strPtr("grace@example.com")})
	assert.EqualError(t, err, "Email already registered")
	_, err = svc.UpdateUser(ctx, frank.ID, UpdateUserInput{Role: strPtr("superuser")})
	assertCode(t, err, models.CodeValidation)

	// keeping one's own username is not a conflict
	_, err = svc.UpdateUser(ctx, frank.ID, UpdateUserInput{Username: strPtr("frank")})
	require.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, db, "root", models.RoleAdmin)
	heidi := testutil.CreateUser(t, db, "heidi", models.RoleUser)
	testutil.CreatePost(t, db, heidi, "Heidi post", models.StatusPublished)

	assert.ErrorIs(t, svc.DeleteUser(ctx, root, root.ID), ErrCannotDeleteSelf)
	require.NoError(t, svc.DeleteUser(ctx, root, heidi.ID))
	assertCode(t, svc.DeleteUser(ctx, root, heidi.ID), models.CodeNotFound)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Where("author_id = ?", heidi.ID).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestGetUserPostsAndListUsers(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	ivan := testutil.CreateUser(t, db, "ivan", models.RoleUser)
	testutil.CreateUser(t, db, "judy", models.RoleAdmin)
	testutil.CreatePost(t, db, ivan, "Ivan public", models.StatusPublished)
	testutil.CreatePost(t, db, ivan, "Ivan draft", models.StatusDraft)

	page, err := svc.GetUserPosts(ctx, ivan.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ivan public", page.Items[0].Title)

	_, err = svc.GetUserPosts(ctx, 999, 1, 10)
	assertCode(t, err, models.CodeNotFound)

	users, err := svc.ListUsers(ctx, "", "admin", 1, 10)
	require.NoError(t, err)
	require.Len(t, users.Items, 1)
	assert.Equal(t, "judy", users.Items[0].Username)

	users, err = svc.ListUsers(ctx, "IVA", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users.Total)

	_, err = svc.ListUsers(ctx, "", "root", 1, 10)
	assertCode(t, err, models.CodeValidation)
}
