package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/auth"
	"github.com/popupmarket/proxybuy/internal/cache"
	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository/postgres"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/create-admin/main.go <email> [password]")
		fmt.Println("Example: go run cmd/create-admin/main.go \"ops@popup.kr\" \"change-me-now\"")
		fmt.Println("The password is only used when the user does not exist yet.")
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	password := ""
	if len(os.Args) > 2 {
		password = os.Args[2]
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	repos := postgres.NewRepositories(db, logger)

	// Reuse the user when the email is taken
	user, err := repos.User.GetByEmail(ctx, email)
	created := false
	if errors.IsNotFound(err) {
		if len(password) < 8 {
			fmt.Fprintln(os.Stderr, "A password of at least 8 characters is required to create a new user")
			os.Exit(1)
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
			os.Exit(1)
		}
		user = &domain.User{
			Email:        email,
			PasswordHash: &hash,
			Provider:     "password",
		}
		if err := repos.User.Create(ctx, user); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
			os.Exit(1)
		}
		created = true
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to look up user: %v\n", err)
		os.Exit(1)
	}

	if err := repos.Admin.Add(ctx, user.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to grant admin: %v\n", err)
		os.Exit(1)
	}

	// Drop a cached "not admin" answer so the grant applies immediately
	if redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL); err == nil {
		admins := cache.NewAdminCache(redisClient, repos.Admin, cfg.Redis.AdminCacheTTL, logger)
		if err := admins.Forget(ctx, user.ID); err != nil {
			logger.Warn("Failed to clear admin cache", zap.Error(err))
		}
		redisClient.Close()
	} else {
		logger.Warn("Redis unavailable, cached admin checks expire on their own", zap.Error(err))
	}

	if created {
		fmt.Printf("User created: %s\n", user.Email)
	}
	fmt.Printf("Admin granted\n\n")
	fmt.Printf("User ID: %s\n", user.ID.String())
	fmt.Printf("Email: %s\n", user.Email)
}
