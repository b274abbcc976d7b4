package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ravimech476/BE/internal/models"
	apperr "github.com/ravimech476/BE/pkg/errors"
	"github.com/ravimech476/BE/pkg/utils"
)

// Identity is the verified caller behind a token.
type Identity struct {
	UserID   uint
	Username string
	Role     models.Role
}

type RegisterInput struct {
	Username  string `json:"username" binding:"required"`
	EmailID   string `json:"email_id" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// AuthService issues and verifies identity tokens.
type AuthService struct {
	users  *UserService
	tokens *utils.TokenManager
}

func NewAuthService(users *UserService, tokens *utils.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Storage("Registration failed", err)
	}

	user := &models.User{
		Username:  strings.TrimSpace(in.Username),
		EmailID:   strings.TrimSpace(in.EmailID),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleEmployee,
		Status:    models.StatusActive,
		Password:  string(hash),
	}
	if in.Phone != "" {
		user.Phone = &in.Phone
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, "", apperr.Storage("Registration failed", err)
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if apperr.StatusOf(err) == apperr.ErrNotFound.Code {
			return nil, "", apperr.Unauthorized("Invalid credentials")
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", apperr.Unauthorized("Invalid credentials")
	}

	if !user.IsActive() {
		return nil, "", apperr.Forbidden("Account is not active")
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLoginDatetime = &now

	token, err := s.tokens.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, "", apperr.Storage("Login failed", err)
	}
	return user, token, nil
}

// Verify checks the token and that its user still exists and is active.
func (s *AuthService) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperr.StatusOf(err) == apperr.ErrNotFound.Code {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperr.Forbidden("Account is not active")
	}

	return &Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}
