package models

import "time"

// DefaultCategoryColor is applied when a category is created without a color.
const DefaultCategoryColor = "#3B82F6"

// Category groups posts. Posts reference it by id only.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:200" json:"description,omitempty"`
	Color       string    `gorm:"size:7;not null" json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}
