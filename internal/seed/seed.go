package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	PostsPerUser    int
	CommentsPerPost int
	ShouldClean     bool
	Factory         FactoryOptions
}

// Result counts what a Seed run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

const maxUserAttempts = 5

// Seed populates the database with demo users, posts across every status,
// likes and comments. Default categories are always ensured first.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 10
	}
	if opts.PostsPerUser < 0 {
		opts.PostsPerUser = 0
	}

	middleware.Logger.Info("Starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts_per_user", opts.PostsPerUser),
	)

	if opts.ShouldClean {
		if err := Clear(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	if err := Categories(db); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}
	var categories []models.Category
	if err := db.Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	f, err := NewFactory(db, opts.Factory)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := createUniqueUser(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	middleware.Logger.Info("Seeded users", slog.Int("count", res.Users))

	statuses := []models.PostStatus{
		models.StatusPublished,
		models.StatusPublished,
		models.StatusPublished,
		models.StatusDraft,
		models.StatusArchived,
	}

	var posts []*models.Post
	for _, author := range users {
		for j := 0; j < opts.PostsPerUser; j++ {
			status := statuses[f.rng.Intn(len(statuses))]
			var categoryID *uint
			if len(categories) > 0 && f.rng.Intn(5) > 0 {
				id := categories[f.rng.Intn(len(categories))].ID
				categoryID = &id
			}
			p, err := f.CreatePost(author, status, func(p *models.Post) {
				p.CategoryID = categoryID
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create posts: %w", err)
			}
			posts = append(posts, p)
		}
	}
	res.Posts = len(posts)
	middleware.Logger.Info("Seeded posts", slog.Int("count", res.Posts))

	for _, p := range posts {
		if p.Status != models.StatusPublished {
			continue
		}
		for _, u := range users {
			if u.ID == p.AuthorID || f.rng.Intn(3) != 0 {
				continue
			}
			if err := f.CreateLike(u, p); err != nil {
				return nil, fmt.Errorf("failed to create likes: %w", err)
			}
			res.Likes++
		}
		for k := 0; k < opts.CommentsPerPost; k++ {
			commenter := users[f.rng.Intn(len(users))]
			if _, err := f.CreateComment(commenter, p); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			res.Comments++
		}
	}
	middleware.Logger.Info("Seeded engagement",
		slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments),
	)

	return res, nil
}

func createUniqueUser(f *Factory) (*models.User, error) {
	var lastErr error
	for attempt := 0; attempt < maxUserAttempts; attempt++ {
		u, err := f.CreateUser()
		if err == nil {
			return u, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Clear removes all posts, engagement, categories and users. Child tables go
// first so foreign keys never block the delete.
func Clear(db *gorm.DB) error {
	tables := []any{
		&models.Like{},
		&models.Comment{},
		&models.Post{},
		&models.Category{},
		&models.User{},
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateCategories(context.Background())
	middleware.Logger.Info("Cleared seeded tables", slog.Int("tables", len(tables)))
	return nil
}
