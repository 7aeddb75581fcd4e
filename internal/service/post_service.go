package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/content"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// EventPublisher fans live events out to websocket clients. userID 0 means
// every connected client.
type EventPublisher interface {
	Emit(ctx context.Context, userID uint, ev notifications.Event)
}

// FlagChecker evaluates feature flags for a caller.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// PostService owns the post lifecycle: creation, edits, deletion, likes,
// comments and view counting.
type PostService struct {
	posts      repository.PostRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	events     EventPublisher
	flags      FlagChecker
}

// CreatePostInput carries the fields accepted on creation. Status and Featured
// are honored for admins only.
type CreatePostInput struct {
	Title      string
	Content    string
	Excerpt    *string
	CategoryID *uint
	Tags       []string
	Status     *string
	Featured   *bool
}

// UpdatePostInput is a partial update; nil fields are left alone. A CategoryID
// pointing at 0 clears the category.
type UpdatePostInput struct {
	Title      *string
	Content    *string
	Excerpt    *string
	CategoryID *uint
	Tags       *[]string
	Status     *string
	Featured   *bool
}

// CommentResult is returned after a comment is appended.
type CommentResult struct {
	Comment      *models.Comment  `json:"comment"`
	Comments     []models.Comment `json:"comments"`
	CommentCount int              `json:"commentCount"`
}

// NewPostService wires the post lifecycle. events and flags may be nil.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	categories repository.CategoryRepository,
	events EventPublisher,
	flags FlagChecker,
) *PostService {
	return &PostService{
		posts:      posts,
		comments:   comments,
		categories: categories,
		events:     events,
		flags:      flags,
	}
}

// ListPosts returns one page of posts visible to identity.
func (s *PostService) ListPosts(ctx context.Context, identity *models.User, f PostFilters, sort string, page, pageSize int) (*PostPage, error) {
	q, paging, err := BuildPostQuery(identity, f, sort, page, pageSize)
	if err != nil {
		return nil, err
	}
	items, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		p.ReadingTime = content.ReadingTime(p.Content)
	}
	return NewPostPage(items, total, paging), nil
}

// GetPost fetches a post for display and counts the view. A post the caller
// may not see is reported exactly like a missing one.
func (s *PostService) GetPost(ctx context.Context, identity *models.User, id uint) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.GetPost", attribute.Int64("post.id", int64(id)))
	defer span.End()

	post, err := s.viewable(ctx, identity, id)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.posts.IncrementViews(ctx, id); err != nil {
		span.SetError(err)
		return nil, err
	}
	post.Views++
	observability.PostViews.Inc()

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	likedBy, err := s.posts.LikedBy(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Comments = comments
	post.LikedBy = likedBy
	post.ReadingTime = content.ReadingTime(post.Content)

	if s.flags != nil && s.flags.Enabled(featureflags.RenderedContent, viewerID(identity)) {
		html, err := content.RenderMarkdown(post.Content)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "markdown render failed",
				slog.Uint64("post_id", uint64(id)), slog.String("error", err.Error()))
		} else {
			post.ContentHTML = html
		}
	}
	return post, nil
}

// Create validates input and stores a new post authored by identity.
func (s *PostService) Create(ctx context.Context, identity *models.User, in CreatePostInput) (*models.Post, error) {
	if identity == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	span, ctx := observability.NewSpan(ctx, "PostService.Create", attribute.Int64("user.id", int64(identity.ID)))
	defer span.End()

	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Content)

	var fields []models.FieldError
	if err := validation.ValidateTitle(title); err != nil {
		fields = append(fields, models.FieldError{Field: "title", Message: err.Error()})
	}
	if err := validation.ValidateContent(body); err != nil {
		fields = append(fields, models.FieldError{Field: "content", Message: err.Error()})
	}
	fields = append(fields, validateExtras(in.Excerpt, in.Tags, in.Status)...)
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields...)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      title,
		Content:    body,
		Excerpt:    deriveExcerpt(in.Excerpt, body),
		AuthorID:   identity.ID,
		CategoryID: nonZero(in.CategoryID),
		Tags:       content.NormalizeTags(in.Tags),
		Status:     models.StatusPublished,
	}
	if identity.IsAdmin() {
		if in.Status != nil {
			post.Status, _ = models.ParsePostStatus(*in.Status)
		}
		if in.Featured != nil {
			post.Featured = *in.Featured
		}
	}

	if err := s.storeWithSlug(ctx, post, 0, s.posts.Create); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.PostMutations.WithLabelValues("create").Inc()

	if post.IsPublished() {
		s.emitPublished(ctx, post)
	}
	return s.posts.GetByID(ctx, post.ID, identity.ID)
}

// Update applies a partial edit. Only the author or an admin may edit; that is
// checked before the input is looked at.
func (s *PostService) Update(ctx context.Context, identity *models.User, id uint, in UpdatePostInput) (*models.Post, error) {
	if identity == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	span, ctx := observability.NewSpan(ctx, "PostService.Update", attribute.Int64("post.id", int64(id)))
	defer span.End()

	post, err := s.posts.GetByID(ctx, id, identity.ID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrRole(identity, post.AuthorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	var fields []models.FieldError
	if in.Title != nil {
		if err := validation.ValidateTitle(*in.Title); err != nil {
			fields = append(fields, models.FieldError{Field: "title", Message: err.Error()})
		}
	}
	if in.Content != nil {
		if err := validation.ValidateContent(*in.Content); err != nil {
			fields = append(fields, models.FieldError{Field: "content", Message: err.Error()})
		}
	}
	var tags []string
	if in.Tags != nil {
		tags = *in.Tags
	}
	fields = append(fields, validateExtras(in.Excerpt, tags, in.Status)...)
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields...)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	wasPublished := post.IsPublished()
	titleChanged := false
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		titleChanged = title != post.Title
		post.Title = title
	}
	if in.Content != nil {
		post.Content = strings.TrimSpace(*in.Content)
		if in.Excerpt == nil {
			post.Excerpt = content.Excerpt(post.Content)
		}
	}
	if in.Excerpt != nil {
		post.Excerpt = deriveExcerpt(in.Excerpt, post.Content)
	}
	if in.CategoryID != nil {
		post.CategoryID = nonZero(in.CategoryID)
		post.Category = nil
	}
	if in.Tags != nil {
		post.Tags = content.NormalizeTags(*in.Tags)
	}
	if identity.IsAdmin() {
		if in.Status != nil {
			post.Status, _ = models.ParsePostStatus(*in.Status)
		}
		if in.Featured != nil {
			post.Featured = *in.Featured
		}
	}

	if titleChanged {
		err = s.storeWithSlug(ctx, post, post.ID, s.posts.Update)
	} else {
		err = s.posts.Update(ctx, post)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.PostMutations.WithLabelValues("update").Inc()

	if !wasPublished && post.IsPublished() {
		s.emitPublished(ctx, post)
	}
	return s.posts.GetByID(ctx, post.ID, identity.ID)
}

// Delete removes a post outright. Only the author or an admin may delete.
func (s *PostService) Delete(ctx context.Context, identity *models.User, id uint) error {
	if identity == nil {
		return auth.ErrAuthenticationRequired
	}
	span, ctx := observability.NewSpan(ctx, "PostService.Delete", attribute.Int64("post.id", int64(id)))
	defer span.End()

	post, err := s.posts.GetByID(ctx, id, identity.ID)
	if err != nil {
		return err
	}
	if err := auth.RequireOwnerOrRole(identity, post.AuthorID, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	observability.PostMutations.WithLabelValues("delete").Inc()
	return nil
}

// ToggleLike flips the caller's like on a post they can see. Applying it twice
// restores the original state.
func (s *PostService) ToggleLike(ctx context.Context, identity *models.User, id uint) (*repository.LikeState, error) {
	if identity == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	span, ctx := observability.NewSpan(ctx, "PostService.ToggleLike", attribute.Int64("post.id", int64(id)))
	defer span.End()

	post, err := s.viewable(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	state, err := s.posts.ToggleLike(ctx, identity.ID, id)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	direction := "unlike"
	if state.Liked {
		direction = "like"
	}
	observability.LikeToggles.WithLabelValues(direction).Inc()
	span.AddAttributes(attribute.String("like.direction", direction))

	if state.Liked && post.AuthorID != identity.ID {
		s.emit(ctx, post.AuthorID, notifications.NewEvent(notifications.EventPostLiked, notifications.PostLikedPayload{
			PostID:    id,
			UserID:    identity.ID,
			LikeCount: state.LikeCount,
		}))
	}
	return state, nil
}

// AddComment appends a comment to a post the caller can see.
func (s *PostService) AddComment(ctx context.Context, identity *models.User, id uint, text string) (*CommentResult, error) {
	if identity == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	span, ctx := observability.NewSpan(ctx, "PostService.AddComment", attribute.Int64("post.id", int64(id)))
	defer span.End()

	text = strings.TrimSpace(text)
	if err := validation.ValidateComment(text); err != nil {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "content", Message: err.Error()})
	}

	post, err := s.viewable(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: id, AuthorID: identity.ID, Content: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, err
	}
	comment.AuthorRef = identity.Ref()
	observability.PostMutations.WithLabelValues("comment").Inc()

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.AuthorID != identity.ID {
		s.emit(ctx, post.AuthorID, notifications.NewEvent(notifications.EventCommentAdded, notifications.CommentAddedPayload{
			PostID:    id,
			CommentID: comment.ID,
			UserID:    identity.ID,
			Content:   comment.Content,
		}))
	}
	return &CommentResult{Comment: comment, Comments: comments, CommentCount: len(comments)}, nil
}

// viewable loads a post and hides it behind NotFound unless the detail rule
// lets identity see it.
func (s *PostService) viewable(ctx context.Context, identity *models.User, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id, viewerID(identity))
	if err != nil {
		return nil, err
	}
	if !CanViewDetail(identity, post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// storeWithSlug picks the first free slug for the title and writes the post.
// Two writers can pick the same slug; the loser retries once with a random
// suffix.
func (s *PostService) storeWithSlug(ctx context.Context, post *models.Post, excludeID uint, write func(context.Context, *models.Post) error) error {
	slug, err := s.posts.AvailableSlug(ctx, content.Slugify(post.Title), excludeID)
	if err != nil {
		return err
	}
	post.Slug = slug
	err = write(ctx, post)
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}

	post.Slug = slug + "-" + strings.Split(uuid.NewString(), "-")[0]
	if excludeID == 0 {
		post.ID = 0
	}
	if err := write(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return models.NewConflictError("slug", "A post with this slug already exists")
		}
		return err
	}
	return nil
}

func (s *PostService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}
	ok, err := s.categories.Exists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewFieldValidationError(models.FieldError{Field: "category", Message: "Category does not exist"})
	}
	return nil
}

func (s *PostService) emitPublished(ctx context.Context, post *models.Post) {
	s.emit(ctx, 0, notifications.NewEvent(notifications.EventPostPublished, notifications.PostPublishedPayload{
		PostID:   post.ID,
		Slug:     post.Slug,
		Title:    post.Title,
		AuthorID: post.AuthorID,
	}))
}

func (s *PostService) emit(ctx context.Context, userID uint, ev notifications.Event) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, userID, ev)
}

// validateExtras checks the optional fields shared by create and update.
// An unknown status is rejected for everyone, even though only admins can
// actually change it.
func validateExtras(excerpt *string, tags []string, status *string) []models.FieldError {
	var fields []models.FieldError
	if excerpt != nil {
		if err := validation.ValidateExcerpt(*excerpt); err != nil {
			fields = append(fields, models.FieldError{Field: "excerpt", Message: err.Error()})
		}
	}
	if err := validation.ValidateTags(tags); err != nil {
		fields = append(fields, models.FieldError{Field: "tags", Message: err.Error()})
	}
	if status != nil {
		if _, err := models.ParsePostStatus(*status); err != nil {
			fields = append(fields, models.FieldError{Field: "status", Message: "Invalid status"})
		}
	}
	return fields
}

func deriveExcerpt(explicit *string, body string) string {
	if explicit != nil {
		if e := strings.TrimSpace(*explicit); e != "" {
			return e
		}
	}
	return content.Excerpt(body)
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

func viewerID(identity *models.User) uint {
	if identity == nil {
		return 0
	}
	return identity.ID
}
