// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of privilege levels a user can hold.
type Role string

// Supported roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts raw input into a Role, rejecting anything outside the set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// User is an account on the platform. The stored row is the source of truth for
// every authorization decision; tokens only carry its id.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"size:16;not null;index" json:"role"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Ref returns the public projection of the user embedded in post payloads.
func (u *User) Ref() *AuthorRef {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &AuthorRef{ID: u.ID, Username: u.Username}
}

// AuthorRef is the public view of a user attached to posts and comments.
type AuthorRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}
