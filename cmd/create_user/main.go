package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/authgreet/authgreet/application/port/inbound"
	"github.com/authgreet/authgreet/application/usecase"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/infrastructure/adapter"
	"github.com/authgreet/authgreet/infrastructure/config"
	"github.com/authgreet/authgreet/infrastructure/service/jwt"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/authgreet/authgreet/infrastructure/service/password"
)

// Registers an account directly against the configured store, through the
// same signup rules the HTTP API applies.
func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: create_user <email> <name> <password>")
		os.Exit(2)
	}
	email, name, userPassword := os.Args[1], os.Args[2], os.Args[3]

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.CredentialStore == config.StoreMemory {
		log.Fatal("CREDENTIAL_STORE=memory does not persist; use postgres or redis")
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      "text",
		ServiceName: "create_user",
	})

	userRepo, closeStore, err := adapter.OpenUserRepository(ctx, cfg, structuredLogger, true)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}
	defer closeStore()

	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService, err := password.NewBcryptPasswordService(cfg.BcryptCost, cfg.BcryptPepper)
	if err != nil {
		log.Fatalf("Failed to initialize password service: %v", err)
	}

	uc := usecase.NewSessionUseCase(userRepo, tokenService, passwordService, structuredLogger, cfg.RefreshTokenTTL)
	_, err = uc.Signup(ctx, inbound.SignupRequest{Email: email, Name: name, Password: userPassword})

	var vErr *domainerr.ValidationError
	switch {
	case err == nil:
		fmt.Printf("User %s created\n", email)
	case errors.Is(err, domainerr.ErrConflict):
		log.Fatalf("User %s already exists", email)
	case errors.As(err, &vErr):
		log.Fatalf("Invalid %s: %s", vErr.Field, vErr.Message)
	default:
		log.Fatalf("Failed to create user: %v", err)
	}
}
