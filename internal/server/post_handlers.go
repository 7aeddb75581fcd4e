package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostRequest is the body of POST and PUT /api/posts. Absent fields are nil;
// on update they are left unchanged.
type PostRequest struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CategoryID *uint     `json:"categoryId"`
	Tags       *[]string `json:"tags"`
	Status     *string   `json:"status"`
	Featured   *bool     `json:"featured"`
}

// CommentRequest is the body of POST /api/posts/:id/comments.
type CommentRequest struct {
	Content string `json:"content"`
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Paginated, filtered list. Only admins may see drafts or archived posts.
// @Tags posts
// @Produce json
// @Param search query string false "Case-insensitive match on title or content"
// @Param category query string false "Category ID or all"
// @Param author query string false "Author ID"
// @Param status query string false "published, draft, archived or all (admin only)"
// @Param sort query string false "newest, oldest, popular or title"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(10)
// @Success 200 {object} models.Envelope{data=service.PostPage}
// @Failure 400 {object} models.Envelope
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, pageSize := pagingParams(c)
	filters := service.PostFilters{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Author:   c.Query("author"),
		Status:   c.Query("status"),
	}

	result, err := s.postService.ListPosts(c.UserContext(), middleware.CurrentUser(c), filters, c.Query("sort"), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.Envelope{
		Success:    true,
		Data:       result,
		Pagination: result.Pagination(),
	})
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Description Returns the post with its comments and counts a view. Hidden posts answer 404.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "", post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PostRequest true "Post"
// @Success 201 {object} models.Envelope{data=models.Post}
// @Failure 400 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req PostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	in := service.CreatePostInput{
		Excerpt:    req.Excerpt,
		CategoryID: req.CategoryID,
		Status:     req.Status,
		Featured:   req.Featured,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}

	post, err := s.postService.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusCreated, "Post created successfully", post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Author or admin only. Status changes are honored for admins only.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body PostRequest true "Fields to change"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 400 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req PostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), middleware.CurrentUser(c), id, service.UpdatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
		Status:     req.Status,
		Featured:   req.Featured,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Post updated successfully", post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Post deleted successfully", nil)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=repository.LikeState}
// @Failure 401 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.postService.ToggleLike(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	msg := "Post unliked"
	if state.Liked {
		msg = "Post liked"
	}
	return models.RespondWithData(c, fiber.StatusOK, msg, state)
}

// AddComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} models.Envelope{data=service.CommentResult}
// @Failure 400 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.postService.AddComment(c.UserContext(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusCreated, "Comment added successfully", result)
}
