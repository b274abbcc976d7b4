package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperr "github.com/ravimech476/BE/pkg/errors"
	"github.com/ravimech476/BE/pkg/logger"
)

// ErrorHandlerMiddleware handles errors and panics
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal Server Error",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperr.As(err)
		if !ok {
			logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled request error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal Server Error",
			})
			return
		}

		if appErr.Code >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		}
		c.JSON(appErr.Code, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	}
}
