package repository

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// UserQuery is a normalized admin listing request.
type UserQuery struct {
	Search string
	Role   *models.Role
	Limit  int
	Offset int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q UserQuery) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID always reads the primary store; authentication depends on seeing
// role and deactivation changes immediately.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer observability.TrackQuery("get_by_email", "users")()
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "User", id)
	}
	return count > 0, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, "LOWER(email) = ?", strings.ToLower(email), excludeID)
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.taken(ctx, "LOWER(username) = ?", strings.ToLower(username), excludeID)
}

func (r *userRepository) taken(ctx context.Context, cond string, value string, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Where(cond, value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err, "User", nil)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()
	return translate(r.db.WithContext(ctx).Create(user).Error, "User", user.ID)
}

// Update writes the admin-editable columns.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()
	res := r.db.WithContext(ctx).
		Model(user).
		Select("username", "email", "role", "is_active", "updated_at").
		Updates(user)
	if res.Error != nil {
		return translate(res.Error, "User", user.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

// Delete removes the user together with their posts (and those posts' likes
// and comments) plus the likes and comments they left elsewhere.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "users")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownPosts := func() *gorm.DB {
			return tx.Model(&models.Post{}).Select("id").Where("author_id = ?", id)
		}
		steps := []func() error{
			func() error { return tx.Where("post_id IN (?)", ownPosts()).Delete(&models.Like{}).Error },
			func() error { return tx.Where("post_id IN (?)", ownPosts()).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Like{}).Error },
			func() error { return tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("author_id = ?", id).Delete(&models.Post{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return translate(err, "User", id)
			}
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return translate(res.Error, "User", id)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
}

func (r *userRepository) List(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	defer observability.TrackQuery("list", "users")()
	base := r.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(q.Search); term != "" {
		cond, args := matchAnyColumn(base, term, "username", "email")
		base = base.Where(cond, args...)
	}
	if q.Role != nil {
		base = base.Where("role = ?", *q.Role)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "User", nil)
	}

	users := make([]models.User, 0, q.Limit)
	err := base.Order("created_at DESC, id DESC").Limit(q.Limit).Offset(q.Offset).Find(&users).Error
	if err != nil {
		return nil, 0, translate(err, "User", nil)
	}
	return users, total, nil
}
