package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ravimech476/BE/internal/handlers"
	"github.com/ravimech476/BE/internal/middleware"
	"github.com/ravimech476/BE/internal/realtime"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	FrontendURL string
	HTTPS       bool

	Verifier middleware.IdentityVerifier
	Auth     *handlers.AuthHandler
	Chat     *handlers.ChatHandler

	Gateway  *realtime.Gateway
	SocketIO *handlers.SocketIO
	WS       *handlers.WSHub

	GeneralLimiter *middleware.IPRateLimiter
	AuthLimiter    *middleware.IPRateLimiter
	SendLimiter    *middleware.IPRateLimiter
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.SecurityHeaders(d.HTTPS))
	r.Use(middleware.CORSMiddleware(d.FrontendURL))

	requireAuth := middleware.AuthMiddleware(d.Verifier)

	api := r.Group("/api")
	if d.GeneralLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(d.GeneralLimiter))
	}
	{
		RegisterAuthRoutes(api.Group("/auth"), d.Auth, requireAuth, limitOrPass(d.AuthLimiter))
		RegisterChatRoutes(api, d.Chat, requireAuth, limitOrPass(d.SendLimiter))
	}

	r.GET("/health", handlers.Health(d.DB, d.Redis))

	if d.SocketIO != nil {
		r.GET("/socket.io/*any", d.SocketIO.Handler())
		r.POST("/socket.io/*any", d.SocketIO.Handler())
	}
	if d.WS != nil && d.Gateway != nil {
		r.GET("/ws", d.WS.Handler(d.Gateway))
	}

	return r
}

func limitOrPass(l *middleware.IPRateLimiter) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimitMiddleware(l)
}
