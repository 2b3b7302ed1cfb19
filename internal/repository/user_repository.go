package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/contentanonymity/backend/internal/models"
	"gorm.io/gorm"
)

// ErrUserNotFound wraps ErrNotFound so callers may match either
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// UserRepository handles all database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error
	DeleteUser(ctx context.Context, userID string) error

	GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]*models.User, error)
	TopByPoints(ctx context.Context, limit int) ([]*models.User, error)

	GetTotalUserCount(ctx context.Context) (int64, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if user.Level == 0 {
		user.Level = 1
	}
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) findOne(q *gorm.DB) (*models.User, error) {
	var user models.User
	err := q.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", userID))
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email))
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username))
}

func (r *userRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("google_id = ?", googleID))
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

// UpdateFields writes only the given columns
func (r *userRepository) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" || len(fields) == 0 {
		return ErrInvalidInput
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser soft deletes a user
func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", userID).
		Delete(&models.User{}).Error
}

// GetUsers gets multiple users by IDs
func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		return users, nil
	}

	err := r.db.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&users).Error

	return users, err
}

// SearchUsers searches users by username or display name
func (r *userRepository) SearchUsers(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	var users []*models.User

	pattern := likePattern(query)

	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("points DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error

	return users, err
}

// TopByPoints is the database leaderboard
func (r *userRepository) TopByPoints(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User

	err := r.db.WithContext(ctx).
		Where("points > 0").
		Order("points DESC").
		Order("created_at").
		Limit(limit).
		Find(&users).Error

	return users, err
}

// GetTotalUserCount gets total user count
func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Count(&count).Error

	return count, err
}
