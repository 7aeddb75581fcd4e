package models

import (
	"fmt"
	"strings"
	"time"
)

// PostStatus is the publication state of a post.
type PostStatus string

// Post statuses.
const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// ParsePostStatus converts raw input into a PostStatus.
func ParsePostStatus(raw string) (PostStatus, error) {
	switch PostStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	case StatusArchived:
		return StatusArchived, nil
	}
	return "", fmt.Errorf("unknown post status %q", raw)
}

// Post represents a blog post.
type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Slug       string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Excerpt    string     `gorm:"size:300" json:"excerpt"`
	AuthorID   uint       `gorm:"not null;index" json:"authorId"`
	Author     User       `gorm:"foreignKey:AuthorID" json:"-"`
	CategoryID *uint      `gorm:"index" json:"categoryId,omitempty"`
	Category   *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags       []string   `gorm:"serializer:json;type:text" json:"tags"`
	Status     PostStatus `gorm:"size:16;not null;index" json:"status"`
	Featured   bool       `gorm:"not null" json:"featured"`
	Views      int64      `gorm:"not null" json:"views"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// LikeCount is not persisted; computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"likeCount"`
	// CommentCount is not persisted; computed at query time
	CommentCount int64 `gorm:"->;-:migration" json:"commentCount"`
	// Liked indicates whether the requesting user liked this post (computed)
	Liked bool `gorm:"->;-:migration" json:"liked"`

	AuthorRef   *AuthorRef `gorm:"-" json:"author,omitempty"`
	ReadingTime int        `gorm:"-" json:"readingTime"`
	LikedBy     []uint     `gorm:"-" json:"likedBy,omitempty"`
	Comments    []Comment  `gorm:"-" json:"comments,omitempty"`
	ContentHTML string     `gorm:"-" json:"contentHtml,omitempty"`
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}
