// Package main provides admin management utilities for the users service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"usersvc/internal/config"
	"usersvc/internal/database"
	"usersvc/internal/models"
	"usersvc/internal/repository"
	"usersvc/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <email>     - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <email>      - Demote user from admin")
	fmt.Println("  go run ./cmd/admin block <email>       - Block a user")
	fmt.Println("  go run ./cmd/admin unblock <email>     - Unblock a user")
	fmt.Println("  go run ./cmd/admin list-admins         - List all admins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	userRepo := repository.NewUserRepository(db)
	users := service.NewUserService(
		userRepo,
		repository.NewInterestRepository(db),
		repository.NewBiometricTokenRepository(db),
		cfg.MaxSearchAmount,
	)
	ctx := context.Background()

	command := os.Args[1]
	if command == "list-admins" {
		listAdmins(ctx, userRepo)
		return
	}

	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin %s <email>\n", command)
		os.Exit(1)
	}
	email := os.Args[2]

	switch command {
	case "promote":
		setAdmin(ctx, users, email, true)
	case "demote":
		setAdmin(ctx, users, email, false)
	case "block":
		setBlocked(ctx, users, email, true)
	case "unblock":
		setBlocked(ctx, users, email, false)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func lookup(ctx context.Context, users *service.UserService, email string) *models.User {
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			fmt.Printf("User with email %s not found\n", email)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	return user
}

func setAdmin(ctx context.Context, users *service.UserService, email string, admin bool) {
	user := lookup(ctx, users, email)
	if user.Admin == admin {
		fmt.Printf("User %s (%s) already has admin=%v\n", user.Username, user.Email, admin)
		return
	}

	if err := users.ChangeAdminStatus(ctx, email, admin); err != nil {
		log.Fatalf("Failed to update admin status: %v", err)
	}

	if admin {
		fmt.Printf("✅ Successfully promoted %s (%s) to admin\n", user.Username, user.Email)
	} else {
		fmt.Printf("✅ Successfully demoted %s (%s) from admin\n", user.Username, user.Email)
	}
}

func setBlocked(ctx context.Context, users *service.UserService, email string, blocked bool) {
	user := lookup(ctx, users, email)
	if err := users.ChangeBlockedStatus(ctx, email, blocked); err != nil {
		log.Fatalf("Failed to update blocked status: %v", err)
	}
	fmt.Printf("✅ %s (%s) blocked=%v\n", user.Username, user.Email, blocked)
}

func listAdmins(ctx context.Context, repo repository.UserRepository) {
	admins, err := repo.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
