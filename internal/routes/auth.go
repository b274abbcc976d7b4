package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ravimech476/BE/internal/handlers"
)

func RegisterAuthRoutes(r gin.IRouter, h *handlers.AuthHandler, auth, limit gin.HandlerFunc) {
	r.POST("/register", limit, h.Register)
	r.POST("/login", limit, h.Login)
	r.GET("/me", auth, h.Me)
}
