package auth

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"
)

// Authentication and authorization failures returned by Chain and the guards.
var (
	ErrNoToken                = models.NewUnauthorizedError("Access denied. No token provided.")
	ErrInvalidToken           = models.NewUnauthorizedError("Invalid token.")
	ErrExpiredToken           = models.NewUnauthorizedError("Token expired.")
	ErrUserNotFound           = models.NewUnauthorizedError("Invalid token. User not found.")
	ErrUserDeactivated        = models.NewUnauthorizedError("Account is deactivated.")
	ErrAuthenticationRequired = models.NewUnauthorizedError("Access denied. Authentication required.")
	ErrAdminRequired          = models.NewForbiddenError("Access denied. Admin privileges required.")
	ErrOwnerOrAdminRequired   = models.NewForbiddenError("Access denied. Owner or admin privileges required.")
)

// UserLookup loads the stored identity for a token subject.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Chain resolves the caller of a request. The user row is re-read on every
// call so role changes and deactivation apply to tokens already issued.
type Chain struct {
	tokens *TokenService
	users  UserLookup
}

// NewChain creates an authentication chain.
func NewChain(tokens *TokenService, users UserLookup) *Chain {
	return &Chain{tokens: tokens, users: users}
}

// Tokens exposes the token service for issuing credentials.
func (c *Chain) Tokens() *TokenService {
	return c.tokens
}

// Authenticate resolves the identity behind an Authorization header value.
func (c *Chain) Authenticate(ctx context.Context, header string) (*models.User, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return nil, ErrNoToken
	}

	claims, err := c.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	return c.Resolve(ctx, userID)
}

// Resolve loads the stored user behind an already verified credential and
// rejects missing or deactivated accounts.
func (c *Chain) Resolve(ctx context.Context, userID uint) (*models.User, error) {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, ErrUserNotFound
		}
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}
	return user, nil
}

// AuthenticateOptional behaves like Authenticate but degrades every failure
// to an anonymous caller (nil).
func (c *Chain) AuthenticateOptional(ctx context.Context, header string) *models.User {
	user, err := c.Authenticate(ctx, header)
	if err != nil {
		return nil
	}
	return user
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole allows the identity only when it holds role.
func RequireRole(identity *models.User, role models.Role) error {
	if identity == nil {
		return ErrAuthenticationRequired
	}
	if identity.Role != role {
		if role == models.RoleAdmin {
			return ErrAdminRequired
		}
		return models.NewForbiddenError("Access denied. Insufficient privileges.")
	}
	return nil
}

// RequireOwnerOrRole allows the owner of a resource or any holder of role.
func RequireOwnerOrRole(identity *models.User, ownerID uint, role models.Role) error {
	if identity == nil {
		return ErrAuthenticationRequired
	}
	if identity.ID == ownerID || identity.Role == role {
		return nil
	}
	return ErrOwnerOrAdminRequired
}
