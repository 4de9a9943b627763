package main

import (
	"context"
	"flag"
	"log"

	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/pkg/config"
	"inventrack/pkg/database"
	"inventrack/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "email of the account to reset")
	password := flag.String("password", "", "new password (at least 8 characters)")
	flag.Parse()

	if *email == "" || len(*password) < 8 {
		log.Fatal("usage: reset-password -email admin@example.com -password <new password, min 8 chars>")
	}

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "reset-password"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}

	// 3. Find the account
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		zlog.Fatal("user not found", zap.String("email", *email), zap.Error(err))
	}

	// 4. Hash and store; clearing the token version signs out every session
	if err := user.SetPassword(*password); err != nil {
		zlog.Fatal("failed to hash password", zap.Error(err))
	}
	if err := users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		zlog.Fatal("failed to update password", zap.Error(err))
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, ""); err != nil {
		zlog.Fatal("failed to end sessions", zap.Error(err))
	}

	zlog.Info("password reset", zap.String("email", user.Email), zap.String("role", roleOf(user)))
}

func roleOf(u *model.User) string {
	if code := u.RoleCode(); code != "" {
		return code
	}
	return "none"
}
