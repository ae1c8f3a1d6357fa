package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/khoahotran/town-notes/adapters/persistence"
	"github.com/khoahotran/town-notes/internal/config"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/logger"
)

func main() {
	fmt.Println("adding profile into database...")

	err := godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use system environment variables.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)

	p := &profile.Profile{
		Email:     os.Getenv("SEED_EMAIL"),
		Username:  os.Getenv("SEED_USERNAME"),
		FirstName: os.Getenv("SEED_FIRST_NAME"),
		LastName:  os.Getenv("SEED_LAST_NAME"),
	}
	if err := p.ValidateRequired(); err != nil {
		log.Fatalf("invalid seed profile: %v", err)
	}

	ctx := context.Background()
	var repo profile.Repository
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := persistence.NewPostgresPool(cfg, appLogger)
		if err != nil {
			log.Fatalf("cannot connect DB: %v", err)
		}
		defer pool.Close()
		repo = persistence.NewPostgresProfileRepo(pool, appLogger)
	case config.DriverMongo:
		client, db, err := persistence.NewMongoDatabase(ctx, cfg, appLogger)
		if err != nil {
			log.Fatalf("cannot connect DB: %v", err)
		}
		defer client.Disconnect(ctx)
		repo = persistence.NewMongoProfileRepo(db, appLogger)
	default:
		log.Fatalf("store driver %q keeps no data to seed", cfg.Store.Driver)
	}

	if _, err := repo.Insert(ctx, p); err != nil {
		if !errors.Is(err, apperror.ErrDuplicateKey) {
			log.Fatalf("cannot add profile: %v", err)
		}
		if _, err := repo.UpdateByEmail(ctx, p); err != nil {
			log.Fatalf("cannot update profile: %v", err)
		}
	}

	token, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan).GenerateToken(p.Email)
	if err != nil {
		log.Fatalf("cannot issue token: %v", err)
	}

	fmt.Printf("added or updated profile '%s' successfully!\n", p.Email)
	fmt.Printf("bearer token: %s\n", token)
}
