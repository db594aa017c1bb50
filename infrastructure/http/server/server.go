package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/authgreet/authgreet/application/port/inbound"
	"github.com/authgreet/authgreet/infrastructure/http/handler"
	"github.com/authgreet/authgreet/infrastructure/http/middleware"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/gorilla/mux"
)

type Config struct {
	Addr            string
	AllowedOrigins  []string
	SessionIDHeader string
	SecureCookies   bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

type Server struct {
	server *http.Server
	logger logger.Logger
}

// NewRouter builds the full route table with its middleware chain.
func NewRouter(cfg Config, sessionUseCase inbound.SessionUseCase, log logger.Logger) *mux.Router {
	authHandler := handler.NewAuthHandler(sessionUseCase, handler.CookieConfig{Secure: cfg.SecureCookies}, log)
	tokenHandler := handler.NewTokenHandler(sessionUseCase, log)
	auth := middleware.NewAuthMiddleware(sessionUseCase, log)

	sessionHeader := cfg.SessionIDHeader
	if sessionHeader == "" {
		sessionHeader = middleware.DefaultSessionIDHeader
	}

	router := mux.NewRouter()
	router.Use(middleware.SessionIDMiddleware(sessionHeader))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, sessionHeader))

	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	authRoutes := router.PathPrefix("/authenticate").Subrouter()
	authRoutes.HandleFunc("/signup", authHandler.Signup).Methods(http.MethodPost, http.MethodOptions)
	authRoutes.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	authRoutes.Handle("/logout", auth.RequireAuth(http.HandlerFunc(authHandler.Logout))).Methods(http.MethodPost, http.MethodOptions)
	authRoutes.Handle("/me", auth.RequireAuth(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet, http.MethodOptions)

	tokenRoutes := router.PathPrefix("/tokens").Subrouter()
	tokenRoutes.Handle("/validate", auth.RequireAuth(http.HandlerFunc(tokenHandler.Validate))).Methods(http.MethodPost, http.MethodOptions)
	tokenRoutes.HandleFunc("/refresh", tokenHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

func New(cfg Config, sessionUseCase inbound.SessionUseCase, log logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg, sessionUseCase, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log,
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
