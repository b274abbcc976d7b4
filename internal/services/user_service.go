package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ravimech476/BE/internal/models"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// UserService is the read side of the user directory used by chat.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Storage("Failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Storage("Failed to load user", err)
	}
	return &user, nil
}

// ListActive returns active users ordered by username.
func (s *UserService) ListActive(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Storage("Failed to get users", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, user *models.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return apperr.Storage("Failed to create user", err)
	}
	if count > 0 {
		return apperr.Validation("Username already exists")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email_id = ?", user.EmailID).Count(&count).Error; err != nil {
		return apperr.Storage("Failed to create user", err)
	}
	if count > 0 {
		return apperr.Validation("Email already registered")
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return apperr.Storage("Failed to create user", err)
	}
	return nil
}

func (s *UserService) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_datetime", at).Error
	if err != nil {
		return apperr.Storage("Failed to update last login", err)
	}
	return nil
}

// SetAccess changes a user's role and status. Empty values are left alone.
func (s *UserService) SetAccess(ctx context.Context, username string, role models.Role, status models.UserStatus) (*models.User, error) {
	if role != "" && role != models.RoleAdmin && role != models.RoleEmployee {
		return nil, apperr.Validation("Unknown role")
	}
	if status != "" && status != models.StatusActive && status != models.StatusInactive {
		return nil, apperr.Validation("Unknown status")
	}

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if role != "" {
		updates["role"] = role
		user.Role = role
	}
	if status != "" {
		updates["status"] = status
		user.Status = status
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, apperr.Storage("Failed to update user", err)
	}
	return user, nil
}
