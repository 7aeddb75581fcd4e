package seed

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/content"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategory is a category every installation starts with.
type DefaultCategory struct {
	Name        string
	Description string
	Color       string
}

// DefaultCategories defines the categories seeded on a fresh database.
var DefaultCategories = []DefaultCategory{
	{Name: "Technology", Description: "Software, hardware and the industry around them.", Color: "#3B82F6"},
	{Name: "Design", Description: "Visual, product and interaction design.", Color: "#EC4899"},
	{Name: "Travel", Description: "Trips, places and travel notes.", Color: "#10B981"},
	{Name: "Food", Description: "Recipes, restaurants and cooking.", Color: "#F59E0B"},
	{Name: "Science", Description: "Research, discoveries and explainers.", Color: "#8B5CF6"},
	{Name: "Culture", Description: "Books, film, music and art.", Color: "#EF4444"},
}

// Categories inserts the default categories. Existing rows are left alone, so
// the call is idempotent.
func Categories(db *gorm.DB) error {
	rows := make([]models.Category, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		rows = append(rows, models.Category{
			Name:        c.Name,
			Slug:        content.Slugify(c.Name),
			Description: c.Description,
			Color:       c.Color,
		})
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return err
	}
	cache.InvalidateCategories(context.Background())
	return nil
}
