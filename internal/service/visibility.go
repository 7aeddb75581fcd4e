// Package service holds the business rules of the blog: who may see which
// posts, how list queries are normalized and how posts change over time.
package service

import (
	"slices"

	"inkwell/internal/models"
)

// Scope is the set of post statuses a caller may list.
type Scope []models.PostStatus

// Contains reports whether status is inside the scope.
func (s Scope) Contains(status models.PostStatus) bool {
	return slices.Contains(s, status)
}

// ScopeFor clamps a requested status filter to what identity may list.
// Anonymous callers and non-admins always get published posts only, whatever
// they ask for. Admins get the requested status, or published when the request
// is empty or not a valid status.
func ScopeFor(identity *models.User, requested string) Scope {
	if !identity.IsAdmin() {
		return Scope{models.StatusPublished}
	}
	status, err := models.ParsePostStatus(requested)
	if err != nil {
		return Scope{models.StatusPublished}
	}
	return Scope{status}
}

// CanView is the list rule. The author gets no exemption here: a draft does not
// show up in its own author's listing.
func CanView(identity *models.User, post *models.Post) bool {
	return ScopeFor(identity, "").Contains(post.Status)
}

// CanViewDetail is the single-fetch rule: the list rule, or the caller wrote
// the post, or the caller is an admin.
func CanViewDetail(identity *models.User, post *models.Post) bool {
	if CanView(identity, post) {
		return true
	}
	if identity == nil {
		return false
	}
	return identity.ID == post.AuthorID || identity.IsAdmin()
}
