package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ravimech476/BE/internal/middleware"
	"github.com/ravimech476/BE/internal/services"
	apperr "github.com/ravimech476/BE/pkg/errors"
	"github.com/ravimech476/BE/pkg/logger"
)

type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(apperr.Validation("Username, valid email and a password of at least 6 characters are required"))
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user.Public(), "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(apperr.Validation("Username and password are required"))
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Public(), "token": token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Public()})
}

func logFor(c *gin.Context) zerolog.Logger {
	l := logger.Log.With()
	if id, ok := c.Get("requestId"); ok {
		l = l.Interface("request_id", id)
	}
	return l.Logger()
}
