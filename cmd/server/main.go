package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/authgreet/authgreet/application/usecase"
	"github.com/authgreet/authgreet/infrastructure/adapter"
	"github.com/authgreet/authgreet/infrastructure/config"
	"github.com/authgreet/authgreet/infrastructure/http/server"
	"github.com/authgreet/authgreet/infrastructure/service/jwt"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/authgreet/authgreet/infrastructure/service/password"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "authgreet",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":   cfg.Environment,
		"store": cfg.CredentialStore,
	})

	userRepo, closeStore, err := adapter.OpenUserRepository(ctx, cfg, structuredLogger, true)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to open credential store", err, map[string]interface{}{
			"store": cfg.CredentialStore,
		})
		log.Fatalf("Failed to open credential store: %v", err)
	}
	defer closeStore()

	// Initialize services
	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService, err := password.NewBcryptPasswordService(cfg.BcryptCost, cfg.BcryptPepper)
	if err != nil {
		log.Fatalf("Failed to initialize password service: %v", err)
	}

	sessionUseCase := usecase.NewSessionUseCase(userRepo, tokenService, passwordService, structuredLogger, cfg.RefreshTokenTTL)

	srv := server.New(server.Config{
		Addr:            cfg.Addr(),
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		SessionIDHeader: cfg.SessionIDHeader,
		SecureCookies:   cfg.IsProduction(),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
	}, sessionUseCase, structuredLogger)

	go func() {
		if err := srv.Start(); err != nil {
			structuredLogger.Error(ctx, "Server failed", err, map[string]interface{}{"addr": cfg.Addr()})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
