package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository reads the flat category list. Categories are seeded, not
// managed through the API.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	defer observability.TrackQuery("list", "categories")()
	categories := make([]models.Category, 0)
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, translate(err, "Category", nil)
	}
	return categories, nil
}

func (r *categoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "Category", id)
	}
	return count > 0, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}
	return translate(r.db.WithContext(ctx).Create(category).Error, "Category", category.ID)
}
