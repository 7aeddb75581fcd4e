package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Credential failures.
var (
	ErrInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")
	ErrCannotDeleteSelf   = models.NewValidationError("Cannot delete your own account")
)

// UserService handles accounts: registration, login and admin management.
type UserService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	posts      *PostService
	bcryptCost int
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UpdateUserInput is an admin edit; nil fields are left alone.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Role     *string
	IsActive *bool
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Items      []models.User
	Total      int64
	Pagination *models.Pagination
}

// NewUserService creates a UserService. A zero bcryptCost uses bcrypt.DefaultCost.
func NewUserService(users repository.UserRepository, tokens *auth.TokenService, posts *PostService, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{users: users, tokens: tokens, posts: posts, bcryptCost: bcryptCost}
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Register creates a regular user account and returns a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var fields []models.FieldError
	if err := validation.ValidateUsername(username); err != nil {
		fields = append(fields, models.FieldError{Field: "username", Message: err.Error()})
	}
	if err := validation.ValidateEmail(email); err != nil {
		fields = append(fields, models.FieldError{Field: "email", Message: err.Error()})
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields = append(fields, models.FieldError{Field: "password", Message: err.Error()})
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields...)
	}

	if err := s.checkUnique(ctx, username, email, 0); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.uniqueConflict(ctx, err, email)
	}
	return s.issue(user)
}

// Login verifies email and password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var fields []models.FieldError
	if err := validation.ValidateEmail(email); err != nil {
		fields = append(fields, models.FieldError{Field: "email", Message: err.Error()})
	}
	if password == "" {
		fields = append(fields, models.FieldError{Field: "password", Message: "Password is required"})
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields...)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, auth.ErrUserDeactivated
	}
	return s.issue(user)
}

// ListUsers is the admin listing with optional search and role filter.
func (s *UserService) ListUsers(ctx context.Context, search, role string, page, pageSize int) (*UserPage, error) {
	paging := ClampPaging(page, pageSize)
	q := repository.UserQuery{
		Search: strings.TrimSpace(search),
		Limit:  paging.PageSize,
		Offset: paging.Offset(),
	}
	if r := strings.TrimSpace(role); r != "" && !strings.EqualFold(r, "all") {
		parsed, err := models.ParseRole(r)
		if err != nil {
			return nil, models.NewValidationError("Invalid role")
		}
		q.Role = &parsed
	}

	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	summary := NewPostPage(nil, total, paging)
	return &UserPage{Items: users, Total: total, Pagination: summary.Pagination()}, nil
}

// GetUser returns a user to themselves or to an admin.
func (s *UserService) GetUser(ctx context.Context, identity *models.User, id uint) (*models.User, error) {
	if err := auth.RequireOwnerOrRole(identity, id, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// GetUserPosts lists a user's published posts.
func (s *UserService) GetUserPosts(ctx context.Context, id uint, page, pageSize int) (*PostPage, error) {
	ok, err := s.users.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return s.posts.ListPosts(ctx, nil, PostFilters{Author: strconv.FormatUint(uint64(id), 10)}, string(repository.SortNewest), page, pageSize)
}

// UpdateUser applies an admin edit to a user.
func (s *UserService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []models.FieldError
	username, email := user.Username, user.Email
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			fields = append(fields, models.FieldError{Field: "username", Message: err.Error()})
		}
	}
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			fields = append(fields, models.FieldError{Field: "email", Message: err.Error()})
		}
	}
	var role models.Role
	if in.Role != nil {
		if role, err = models.ParseRole(*in.Role); err != nil {
			fields = append(fields, models.FieldError{Field: "role", Message: "Role must be either user or admin"})
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields...)
	}

	if err := s.checkUnique(ctx, username, email, user.ID); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	if in.Role != nil {
		user.Role = role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, s.uniqueConflict(ctx, err, email)
	}
	return user, nil
}

// DeleteUser removes a user and everything they wrote. Admins cannot delete
// themselves.
func (s *UserService) DeleteUser(ctx context.Context, identity *models.User, id uint) error {
	if identity != nil && identity.ID == id {
		return ErrCannotDeleteSelf
	}
	return s.users.Delete(ctx, id)
}

func (s *UserService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	taken, err := s.users.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewConflictError("email", "Email already registered")
	}
	taken, err = s.users.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewConflictError("username", "Username already taken")
	}
	return nil
}

// uniqueConflict names the field behind a unique violation that slipped past
// checkUnique because of a concurrent write.
func (s *UserService) uniqueConflict(ctx context.Context, err error, email string) error {
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}
	if taken, lookupErr := s.users.EmailTaken(ctx, email, 0); lookupErr == nil && taken {
		return models.NewConflictError("email", "Email already registered")
	}
	return models.NewConflictError("username", "Username already taken")
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
