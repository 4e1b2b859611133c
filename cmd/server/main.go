package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/app"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/handler"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/logger"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/response"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(cfg.Logging)

	application, err := app.New(context.Background(), cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	billingHandler := handler.NewBillingHandler(application.Service, l)
	healthHandler := handler.NewHealthHandler(application.Store, application.Redis, cfg.Health.Timeout)

	router := setupRoutes(l, billingHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		l.Info().Str("addr", server.Addr).Str("env", cfg.Server.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("server exited")
}

// Preflight requests have no route; CORS must see them before mux does.
func setupRoutes(l zerolog.Logger, billingHandler *handler.BillingHandler, healthHandler *handler.HealthHandler) http.Handler {
	router := mux.NewRouter()

	healthHandler.RegisterRoutes(router)
	billingHandler.RegisterRoutes(router)

	return response.LoggingMiddleware(l)(response.CORSMiddleware(router))
}
