package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ravimech476/BE/internal/config"
	"github.com/ravimech476/BE/internal/database"
	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/services"
	"github.com/ravimech476/BE/pkg/logger"
)

func main() {
	username := flag.String("username", "", "account to update (required)")
	role := flag.String("role", "", "new role: admin or employee")
	status := flag.String("status", "", "new status: active or inactive")
	flag.Parse()

	if *username == "" || (*role == "" && *status == "") {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Init("production")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	user, err := services.NewUserService(db).SetAccess(context.Background(), *username, models.Role(*role), models.UserStatus(*status))
	if err != nil {
		logger.Fatal().Err(err).Str("username", *username).Msg("Failed to update user")
	}

	fmt.Printf("Updated %s (%s): role=%s status=%s\n", user.Username, user.EmailID, user.Role, user.Status)
}
