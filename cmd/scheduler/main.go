package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/app"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/logger"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/scheduler"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(cfg.Logging).With().Str("process", "scheduler").Logger()

	application, err := app.New(context.Background(), cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	s, err := scheduler.New(cfg, application.Service, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to schedule jobs")
	}

	s.Start()
	l.Info().
		Str("overdue_cron", cfg.Scheduler.OverdueCron).
		Str("timezone", cfg.Scheduler.Timezone).
		Msg("scheduler running")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down scheduler")
	<-s.Stop().Done()
	l.Info().Msg("scheduler stopped")
}
