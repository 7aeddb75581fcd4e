package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostSort names a supported list ordering.
type PostSort string

// Supported orderings. Unknown values fall back to SortNewest.
const (
	SortNewest  PostSort = "newest"
	SortOldest  PostSort = "oldest"
	SortPopular PostSort = "popular"
	SortTitle   PostSort = "title"
)

const maxToggleAttempts = 5

// PostQuery is a fully normalized list request. Statuses must already be
// clamped to what the caller may see.
type PostQuery struct {
	Search     string
	CategoryID *uint
	AuthorID   *uint
	Statuses   []models.PostStatus
	Sort       PostSort
	Limit      int
	Offset     int
	ViewerID   uint
}

// LikeState is the membership set of a post after a toggle.
type LikeState struct {
	Liked     bool   `json:"liked"`
	LikedBy   []uint `json:"likedBy"`
	LikeCount int64  `json:"likeCount"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, q PostQuery) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	AvailableSlug(ctx context.Context, base string, excludeID uint) (string, error)
	IncrementViews(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (*LikeState, error)
	LikedBy(ctx context.Context, postID uint) ([]uint, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
	return translate(err, "Post", post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Preload("Category").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	post.AuthorRef = post.Author.Ref()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, q PostQuery) ([]*models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()
	db := r.db.WithContext(ctx)

	var total int64
	if err := r.applyFilters(db.Model(&models.Post{}), q).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Post", nil)
	}

	posts := make([]*models.Post, 0, q.Limit)
	if total == 0 || int64(q.Offset) >= total {
		return posts, total, nil
	}

	base := r.applyFilters(r.applyPostDetails(db, q.ViewerID), q).
		Preload("Author").
		Preload("Category")
	err := applySort(base, q.Sort).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, translate(err, "Post", nil)
	}
	for _, p := range posts {
		p.AuthorRef = p.Author.Ref()
	}
	return posts, total, nil
}

// applyFilters narrows by status scope, category, author and search term.
// An empty status scope fails closed to published only.
func (r *postRepository) applyFilters(db *gorm.DB, q PostQuery) *gorm.DB {
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = []models.PostStatus{models.StatusPublished}
	}
	db = db.Where("posts.status IN ?", statuses)
	if q.CategoryID != nil {
		db = db.Where("posts.category_id = ?", *q.CategoryID)
	}
	if q.AuthorID != nil {
		db = db.Where("posts.author_id = ?", *q.AuthorID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		cond, args := matchAnyColumn(db, term, "posts.title", "posts.content")
		db = db.Where(cond, args...)
	}
	return db
}

// applySort appends the ORDER BY clause. like_count is a SELECT alias from
// applyPostDetails; both PostgreSQL and SQLite accept it in ORDER BY.
func applySort(db *gorm.DB, sort PostSort) *gorm.DB {
	switch sort {
	case SortOldest:
		return db.Order("posts.created_at ASC, posts.id ASC")
	case SortPopular:
		return db.Order("like_count DESC, posts.views DESC, posts.created_at DESC, posts.id DESC")
	case SortTitle:
		return db.Order("posts.title ASC, posts.id ASC")
	default:
		return db.Order("posts.created_at DESC, posts.id DESC")
	}
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

// Update writes the editable columns only. views is left alone so concurrent
// view increments are never overwritten.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	res := r.db.WithContext(ctx).
		Model(post).
		Omit(clause.Associations).
		Select("title", "content", "slug", "excerpt", "category_id", "tags", "status", "featured", "updated_at").
		Updates(post)
	if res.Error != nil {
		return translate(res.Error, "Post", post.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post with its likes and comments in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return translate(err, "Post", id)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return translate(err, "Post", id)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return translate(res.Error, "Post", id)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// AvailableSlug returns base, or base-N with the smallest N >= 2 that no other
// post uses. The unique index remains the final arbiter under concurrency.
func (r *postRepository) AvailableSlug(ctx context.Context, base string, excludeID uint) (string, error) {
	defer observability.TrackQuery("slug", "posts")()
	var taken []string
	q := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where(`slug = ? OR slug LIKE ? ESCAPE '\'`, base, escapeLike(base)+"-%")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Pluck("slug", &taken).Error; err != nil {
		return "", translate(err, "Post", nil)
	}

	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
}

// IncrementViews bumps the counter in a single statement.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	defer observability.TrackQuery("increment_views", "posts")()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return translate(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ToggleLike flips the user's membership without reading it first: a delete
// that removes a row means "unliked"; otherwise an insert that adds a row means
// "liked". When a concurrent toggle by the same user wins the insert, the
// delete is retried.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (*LikeState, error) {
	defer observability.TrackQuery("toggle_like", "likes")()
	db := r.db.WithContext(ctx)

	state := &LikeState{}
	toggled := false
	for attempt := 0; attempt < maxToggleAttempts && !toggled; attempt++ {
		del := db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if del.Error != nil {
			return nil, translate(del.Error, "Post", postID)
		}
		if del.RowsAffected > 0 {
			state.Liked = false
			toggled = true
			break
		}

		ins := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, PostID: postID})
		if ins.Error != nil {
			return nil, translate(ins.Error, "Post", postID)
		}
		if ins.RowsAffected > 0 {
			state.Liked = true
			toggled = true
		}
	}
	if !toggled {
		return nil, models.NewInternalError(fmt.Errorf("like toggle for user %d on post %d did not settle", userID, postID))
	}

	likedBy, err := r.LikedBy(ctx, postID)
	if err != nil {
		return nil, err
	}
	state.LikedBy = likedBy
	state.LikeCount = int64(len(likedBy))
	return state, nil
}

// LikedBy lists the ids of users who like the post, oldest like first.
func (r *postRepository) LikedBy(ctx context.Context, postID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, translate(err, "Post", postID)
	}
	return ids, nil
}
