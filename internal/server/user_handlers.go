package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpdateUserRequest is the body of PUT /api/users/:id.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// GetUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Match on username or email"
// @Param role query string false "user, admin or all"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(10)
// @Success 200 {object} models.Envelope{data=[]models.User}
// @Failure 401 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page, pageSize := pagingParams(c)
	result, err := s.userService.ListUsers(c.UserContext(), c.Query("search"), c.Query("role"), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.Envelope{
		Success:    true,
		Data:       result.Items,
		Pagination: result.Pagination,
	})
}

// GetUser handles GET /api/users/:id
// @Summary Get a user
// @Description Visible to the user themselves and to admins.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "", user)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's published posts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(10)
// @Success 200 {object} models.Envelope{data=service.PostPage}
// @Failure 404 {object} models.Envelope
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, pageSize := pagingParams(c)
	result, err := s.userService.GetUserPosts(c.UserContext(), id, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.Envelope{
		Success:    true,
		Data:       result,
		Pagination: result.Pagination(),
	})
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 400 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateUser(c.UserContext(), id, service.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "User updated successfully", user)
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete a user
// @Description Removes the user with their posts, comments and likes.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.Envelope
// @Failure 400 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.DeleteUser(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "User deleted successfully", nil)
}
