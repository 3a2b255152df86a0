// Command seed creates an administrator account in the admins collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/models"
	"github.com/dropworks/drop-admin/internal/store"
)

func main() {
	var configPath string
	var email string
	var password string
	var role string

	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.StringVar(&email, "email", "admin@drop-db.local", "Email for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account (required)")
	flag.StringVar(&role, "role", "admin", "Role for the admin account")
	flag.Parse()

	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			fmt.Fprintf(os.Stderr, "Error: password is required. Use -password flag or ADMIN_PASSWORD environment variable\n")
			os.Exit(1)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	db, err := store.New(ctx, cfg.Mongo, log)
	if err != nil {
		log.Error("Failed to connect to store", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(ctx); closeErr != nil {
			log.Error("Failed to close store", logger.Error(closeErr))
		}
	}()

	admins := db.Admins()

	exists, err := admins.ExistsByEmail(ctx, email)
	if err != nil {
		log.Error("Failed to check for existing admin", logger.Error(err))
		os.Exit(1)
	}

	if exists {
		fmt.Printf("Admin %q already exists. Skipping creation.\n", email)
		os.Exit(0)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", logger.Error(err))
		os.Exit(1)
	}

	admin := &models.Admin{
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         role,
		IsActive:     true,
	}

	if err := admins.Create(ctx, admin); err != nil {
		log.Error("Failed to create admin", logger.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Successfully created admin account:\n")
	fmt.Printf("  Email: %s\n", admin.Email)
	fmt.Printf("  Role:  %s\n", admin.Role)
	fmt.Printf("  ID:    %s\n", admin.ID.Hex())
}
