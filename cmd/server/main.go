// Command server runs the booking backend: it loads configuration, opens the
// SQLite database, wires the HTTP router with its middleware stack, starts
// the housekeeping loop, and serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/config"
	httpapi "github.com/liftpisa/go-booking-backend/internal/http"
	"github.com/liftpisa/go-booking-backend/internal/mail"
	"github.com/liftpisa/go-booking-backend/internal/observability"
	"github.com/liftpisa/go-booking-backend/internal/repo"
	"github.com/liftpisa/go-booking-backend/internal/services"
	"github.com/liftpisa/go-booking-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// housekeepingInterval paces the background purge of stale bookings and
// expired temporary codes.
const housekeepingInterval = time.Hour

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			Timeout:  cfg.SMTP.Timeout,
			Attempts: cfg.SMTP.Attempts,
		})
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, mailer, loc, cfg)

	go housekeeping(ctx, db, loc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if sqlDB, derr := db.DB(); derr == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
}

// housekeeping periodically removes bookings older than the retention window
// and expired temporary codes. One pass runs at startup so a long-stopped
// instance catches up immediately.
func housekeeping(ctx context.Context, db *gorm.DB, loc *time.Location, cfg config.Config) {
	bookings := &services.BookingService{
		DB:             db,
		PurgeKeepWeeks: cfg.PurgeKeepWeeks,
		Location:       loc,
	}

	run := func() {
		opCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := bookings.PurgeStale(opCtx); err != nil {
			log.Error().Err(err).Msg("booking purge failed")
		}
		if n, err := repo.DeleteExpiredTempCodes(opCtx, db, time.Now().In(loc)); err != nil {
			log.Error().Err(err).Msg("temp code cleanup failed")
		} else if n > 0 {
			log.Info().Int64("removed", n).Msg("expired temp codes removed")
		}
	}

	run()
	t := time.NewTicker(housekeepingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
