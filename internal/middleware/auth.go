package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ravimech476/BE/internal/services"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "userId"
	UsernameKey = "username"
	RoleKey     = "role"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*services.Identity, error)
}

func AuthMiddleware(verifier IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, apperr.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, apperr.Unauthorized("Invalid authorization header format"))
			return
		}

		id, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			abortWith(c, err)
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UsernameKey, id.Username)
		c.Set(RoleKey, id.Role)
		c.Next()
	}
}

// CurrentUserID returns the caller bound by AuthMiddleware, or 0.
func CurrentUserID(c *gin.Context) uint {
	id, _ := c.Get(UserIDKey)
	uid, _ := id.(uint)
	return uid
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
