// Package middleware provides authentication, logging, tracing and metrics
// middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"log/slog"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals set by the authentication middleware.
const (
	LocalUser   = "user"
	LocalUserID = "userID"
)

// AuthRequired rejects the request unless the chain resolves an active identity.
func AuthRequired(chain *auth.Chain) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := chain.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			observability.AuthFailures.WithLabelValues(failureReason(err)).Inc()
			status := models.StatusCode(err)
			if status >= fiber.StatusInternalServerError {
				Logger.ErrorContext(c.UserContext(), "authentication lookup failed", slog.String("error", err.Error()))
			}
			return models.RespondWithError(c, status, err)
		}
		SetIdentity(c, user)
		return c.Next()
	}
}

// AuthOptional resolves the identity when possible and otherwise continues as
// an anonymous caller.
func AuthOptional(chain *auth.Chain) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user := chain.AuthenticateOptional(c.UserContext(), c.Get(fiber.HeaderAuthorization)); user != nil {
			SetIdentity(c, user)
		}
		return c.Next()
	}
}

// RoleRequired must run after AuthRequired.
func RoleRequired(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.RequireRole(CurrentUser(c), role); err != nil {
			return models.RespondWithError(c, models.StatusCode(err), err)
		}
		return c.Next()
	}
}

// SetIdentity stores the caller in locals and in the request context.
func SetIdentity(c *fiber.Ctx, user *models.User) {
	c.Locals(LocalUser, user)
	c.Locals(LocalUserID, user.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))
}

// CurrentUser returns the authenticated caller, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "no_token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, auth.ErrUserDeactivated):
		return "user_deactivated"
	default:
		return "internal"
	}
}
