package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ravimech476/BE/internal/config"
	"github.com/ravimech476/BE/internal/database"
	"github.com/ravimech476/BE/internal/handlers"
	"github.com/ravimech476/BE/internal/middleware"
	"github.com/ravimech476/BE/internal/presence"
	"github.com/ravimech476/BE/internal/realtime"
	"github.com/ravimech476/BE/internal/routes"
	"github.com/ravimech476/BE/internal/services"
	"github.com/ravimech476/BE/pkg/logger"
	"github.com/ravimech476/BE/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("production")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid config")
	}

	logger.Info().Str("environment", cfg.Env).Msg("Starting intranet chat backend...")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	logger.Info().Msg("Running database migrations...")
	if err := database.Migrate(db, logger.Component("migrator")); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Info().Msg("Database migrations complete")

	rdb, err := database.NewRedis(context.Background(), cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable, live send throttle fails open until it recovers")
	}

	users := services.NewUserService(db)
	store := services.NewMessageStore(db)
	chat := services.NewChatService(store, users)
	auth := services.NewAuthService(users, utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL))

	registry := presence.NewRegistry()

	allowOrigin := originChecker(cfg)
	sio := handlers.NewSocketIO(allowOrigin, logger.Component("socketio"))
	ws := handlers.NewWSHub(allowOrigin, logger.Component("ws"))

	opts := realtime.Options{TypingThrottle: cfg.TypingThrottle}
	if rdb != nil {
		opts.SendLimiter = database.NewRateLimiter(rdb, "chat_send", cfg.ChatSendLimit, cfg.ChatSendWindow)
	}
	gateway := realtime.NewGateway(chat, auth, registry, realtime.Transports{sio, ws}, logger.Component("gateway"), opts)
	sio.Bind(gateway)

	go sio.Serve()
	defer sio.Close()

	generalLimiter := middleware.PerMinute(600, 50)
	authLimiter := middleware.PerMinute(20, 10)
	sendLimiter := middleware.PerMinute(cfg.ChatSendLimit, 10)
	defer generalLimiter.Close()
	defer authLimiter.Close()
	defer sendLimiter.Close()

	r := routes.NewRouter(routes.Deps{
		DB:             db,
		Redis:          rdb,
		FrontendURL:    cfg.FrontendURL,
		HTTPS:          strings.HasPrefix(cfg.FrontendURL, "https://"),
		Verifier:       auth,
		Auth:           handlers.NewAuthHandler(auth, users),
		Chat:           handlers.NewChatHandler(chat, store, users, registry, cfg.PollLookback),
		Gateway:        gateway,
		SocketIO:       sio,
		WS:             ws,
		GeneralLimiter: generalLimiter,
		AuthLimiter:    authLimiter,
		SendLimiter:    sendLimiter,
	})

	// Long-lived connections are not bounded by WriteTimeout; the
	// websocket and socket.io transports manage their own deadlines.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ws.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("Server exited gracefully")
}

// originChecker admits the configured frontend, local dev servers and
// non-browser clients that send no Origin.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || cfg.IsDevelopment() {
			return true
		}
		return origin == cfg.FrontendURL || strings.HasPrefix(origin, "http://localhost:")
	}
}
