package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgauth "github.com/nochance19900208-source/Real-Estate/pkg/auth"
	"github.com/nochance19900208-source/Real-Estate/pkg/config"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	pkgmongo "github.com/nochance19900208-source/Real-Estate/pkg/mongo"
	"github.com/nochance19900208-source/Real-Estate/pkg/security"
)

// create-admin provisions an account that bypasses the subscription gate.
func main() {
	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "Administrator", "display name")
	password := flag.String("password", "", "account password, at least 6 characters")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "create-admin"})
	ctx := context.Background()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email <email> -password <password> [-name <name>]")
		os.Exit(2)
	}
	if len(*password) < 6 {
		fmt.Fprintln(os.Stderr, "password must be at least 6 characters long")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := pkgmongo.New(connectCtx, cfg.Mongo)
	if err != nil {
		logg.Error(ctx, "failed to connect to mongo", err)
		os.Exit(1)
	}
	defer func() {
		_ = mongoClient.Close(ctx)
	}()

	repo := users.NewRepository(mongoClient.UserDB())

	exists, err := repo.ExistsByEmail(ctx, *email)
	if err != nil {
		logg.Error(ctx, "failed to check existing account", err)
		os.Exit(1)
	}
	if exists {
		fmt.Fprintf(os.Stderr, "user with email %s already exists\n", *email)
		os.Exit(1)
	}

	hashed, err := security.HashPassword(*password)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}

	admin := &users.User{
		Email:          users.NormalizeEmail(*email),
		Name:           *name,
		Role:           pkgauth.RoleAdmin,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := repo.Create(ctx, admin); err != nil {
		logg.Error(ctx, "failed to create admin user", err)
		os.Exit(1)
	}

	fmt.Printf("admin user created: %s (%s)\n", admin.Email, admin.PublicID())
	fmt.Println("this account can log in and access all listings without a subscription")
}
