package models

import "time"

// Comment is an append-only remark attached to exactly one post.
type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PostID    uint       `gorm:"not null;index" json:"postId"`
	AuthorID  uint       `gorm:"not null;index" json:"authorId"`
	Author    User       `gorm:"foreignKey:AuthorID" json:"-"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	AuthorRef *AuthorRef `gorm:"-" json:"author,omitempty"`
}
