// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/content"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// FactoryOptions tune generated data.
type FactoryOptions struct {
	// MaxDays spreads created_at over this many days back. Defaults to 90.
	MaxDays int
	// FastHash uses the minimum bcrypt cost.
	FastHash bool
	// Seed makes generation reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and by tests.
type Factory struct {
	db    *gorm.DB
	posts repository.PostRepository
	opts  FactoryOptions
	rng   *rand.Rand
	hash  string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) (*Factory, error) {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	// Every demo user shares a password, so it is hashed once.
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(seed))

	return &Factory{
		db:    db,
		posts: repository.NewPostRepository(db),
		opts:  opts,
		rng:   rng,
		hash:  string(hashed),
	}, nil
}

// CreateUser constructs and persists an active user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	name := strings.ToLower(gofakeit.FirstName() + "_" + gofakeit.LastName())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, name)
	if len(name) > 24 {
		name = name[:24]
	}
	username := fmt.Sprintf("%s%d", name, gofakeit.Number(100, 999))

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: f.hash,
		Role:     models.RoleUser,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for author without persisting it. Title,
// content, excerpt and tags are generated; created_at is spread over the
// configured window.
func (f *Factory) BuildPost(author *models.User, status models.PostStatus, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(gofakeit.Sentence(f.rng.Intn(6)+3), ".")
	n := f.rng.Intn(3) + 2
	paragraphs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paragraphs = append(paragraphs, gofakeit.Paragraph(1, f.rng.Intn(4)+3, 12, " "))
	}
	body := strings.Join(paragraphs, "\n\n")

	tagCount := f.rng.Intn(4)
	tags := make([]string, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		tags = append(tags, gofakeit.Hobby())
	}

	created := time.Now().Add(-time.Duration(f.rng.Intn(f.opts.MaxDays*24*60)) * time.Minute)
	post := &models.Post{
		Title:     title,
		Content:   body,
		Excerpt:   content.Excerpt(body),
		AuthorID:  author.ID,
		Tags:      content.NormalizeTags(tags),
		Status:    status,
		Featured:  f.rng.Intn(10) == 0,
		Views:     int64(f.rng.Intn(500)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a post, giving it the next free slug for its
// title.
func (f *Factory) CreatePost(author *models.User, status models.PostStatus, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, status, overrides...)

	slug, err := f.posts.AvailableSlug(context.Background(), content.Slugify(post.Title), 0)
	if err != nil {
		return nil, err
	}
	post.Slug = slug

	if err := f.db.Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment appends a generated comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  user.ID,
		Content:   gofakeit.Sentence(f.rng.Intn(15) + 3),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rng.Intn(72*60)) * time.Minute),
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records that user likes post. An existing like is kept.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}
