package service

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// CategoryService serves the read-only category list.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// List returns all categories ordered by name, cache-aside through Redis.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := cache.Aside(ctx, cache.CategoryListKey, &out, cache.CategoryListTTL, func() error {
		list, err := s.categories.List(ctx)
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}
