package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/models"
	"github.com/djhunter67/study-site/pkg/crypto"
	apperrors "github.com/djhunter67/study-site/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken indicates another account already owns the email address.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
)

// CreateUserInput describes the fields accepted when creating a user.
// Accounts start inactive unless IsActive says otherwise.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsActive  *bool
}

// UpdateUserInput enumerates mutable user attributes. Nil pointers mean
// "leave unchanged".
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// UserFilters captures listing filters.
type UserFilters struct {
	IsActive *bool
	Query    string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// UserService manages CRUD lifecycle for accounts including activation and authentication.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, now: time.Now}, nil
}

// findUser loads a single user matching the condition, mapping the gorm
// not-found sentinel to ErrUserNotFound.
func (s *UserService) findUser(ctx context.Context, action, cond string, args ...any) (*models.User, error) {
	var user models.User
	switch err := s.db.WithContext(ctx).First(&user, append([]any{cond}, args...)...).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("user service: %s: %w", action, err)
	}
	return &user, nil
}

// oneRowOrNotFound folds the gorm result of a write targeting a single user
// into our error vocabulary.
func oneRowOrNotFound(result *gorm.DB, action string) error {
	if result.Error != nil {
		return fmt.Errorf("user service: %s: %w", action, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Create provisions a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	switch {
	case email == "":
		return nil, apperrors.NewBadRequest("email is required")
	case strings.TrimSpace(input.Password) == "":
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	switch err := s.db.WithContext(ctx).Create(user).Error; {
	case isUniqueConstraintError(err):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ensureContext(ctx), "get user", "id = ?", id)
}

// GetByEmail loads a user by their e-mail address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	return s.findUser(ensureContext(ctx), "get user by email", "email = ?", email)
}

// List retrieves users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := clampPagination(opts.Page, opts.PageSize)
	query := s.filteredUsers(ctx, opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

func (s *UserService) filteredUsers(ctx context.Context, filters UserFilters) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}

func clampPagination(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > maxPageSize {
		perPage = defaultPageSize
	}
	return page, perPage
}

// Update persists mutable attributes for an existing user.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.findUser(ctx, "load user", "id = ?", id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		if email := normaliseEmail(*input.Email); email != "" && email != user.Email {
			updates["email"] = email
		}
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if len(updates) == 0 {
		return user, nil
	}

	switch err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; {
	case isUniqueConstraintError(err):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	return s.findUser(ctx, "reload user", "id = ?", id)
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	return oneRowOrNotFound(result, "delete user")
}

// SetActive toggles the active state of an account.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	return oneRowOrNotFound(result, "update active state")
}

// ChangePassword hashes and updates the user's password.
func (s *UserService) ChangePassword(ctx context.Context, id, newPassword string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash new password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed)
	return oneRowOrNotFound(result, "change password")
}

// Authenticate verifies credentials for an account. Inactive accounts are
// rejected even when the password matches so unconfirmed users cannot log in.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	return user, nil
}
