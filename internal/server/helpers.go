package server

import (
	"errors"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten tells a handler that a helper already answered the
// request. The handler returns nil so the ErrorHandler leaves the response
// alone.
var errResponseWritten = errors.New("response already written")

// parseID reads a positive integer route parameter. Anything else is answered
// with a 400 naming the parameter.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err == nil && id > 0 {
		return uint(id), nil
	}
	label := param
	if param == "id" {
		label = "ID"
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid "+label))
	return 0, errResponseWritten
}

// parseBody decodes the JSON body into dest. A malformed body gets a 400 and
// errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError maps err to its status and writes the envelope. Server-side
// failures are logged with their cause; the client only sees a generic message.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// pagingParams reads page and pageSize. limit is accepted as an alias of
// pageSize. Clamping is left to the service layer.
func pagingParams(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	pageSize = c.QueryInt("pageSize", c.QueryInt("limit", 0))
	return page, pageSize
}
