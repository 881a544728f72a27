// Command seedadmin provisions an admin account. Admin accounts are never
// created through the public API, so deployments run this once against
// their database:
//
//	seedadmin -name "Admin" -email admin@example.com -password secret
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/database"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	name := flag.String("name", "", "admin display name")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	if *name == "" || *email == "" || *password == "" {
		logger.Fatalf("usage: seedadmin -name NAME -email EMAIL -password PASSWORD")
	}
	if len(*password) < 6 {
		logger.Fatalf("password must be at least 6 characters")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	repo := accounts.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection("users"))

	existing, err := repo.FindByEmail(ctx, *email)
	if err != nil {
		logger.Fatalf("lookup failed: %v", err)
	}
	if existing != nil {
		logger.Fatalf("an account with email %s already exists (role %s)", *email, existing.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	admin := &models.User{
		Name:     *name,
		Email:    *email,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := repo.Insert(ctx, admin); err != nil {
		logger.Fatalf("failed to insert admin: %v", err)
	}
	logger.Infof("admin account %s created with id %s", *email, admin.ID.Hex())
}
