package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/welldanyogia/icd-messaging-backend/internal/api"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/middleware"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/database"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"github.com/welldanyogia/icd-messaging-backend/internal/smtp"
	"github.com/welldanyogia/icd-messaging-backend/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live inbox push and optional SMTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithValidation()
			if err != nil {
				return err
			}

			log := logger.New(cfg.SlogLevel())
			slog.SetDefault(log)
			cfg.LogConfig(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := database.Connect(database.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	audit := logger.NewAuditLogger(log)
	repo := repository.NewMessageRepository(db)
	feed := realtime.NewFeed(0)
	messages := services.NewMessageService(repo, feed, nil, log)
	inbox := services.NewInboxService(repo, feed, messages, log)

	hub := websocket.NewHub(inbox, log)
	go hub.Run(ctx)

	limiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx.Done())

	e := api.NewRouter(&api.RouterConfig{
		Messages:       messages,
		Sent:           services.NewSentService(messages),
		Store:          repo,
		Hub:            hub,
		Verifier:       auth.NewTokenVerifier(cfg.JWTSecret, cfg.TokenTTL),
		Limiter:        limiter,
		Logger:         log,
		Audit:          audit,
		AllowedOrigins: cfg.Origins(),
		Production:     cfg.IsProduction(),
		MetricsEnabled: cfg.MetricsEnabled,
	})

	errCh := make(chan error, 2)

	addr := ":" + strconv.Itoa(cfg.APIPort)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var mail *gosmtp.Server
	if cfg.SMTP.Enabled {
		sc, err := smtp.ServerConfigFrom(cfg.SMTP)
		if err != nil {
			return err
		}
		backend := smtp.NewBackend(&smtp.BackendConfig{
			Messages: messages,
			Domains:  cfg.SMTP.Domains,
			Logger:   log,
			Audit:    audit,
		})
		mail = smtp.NewSecureServer(backend, sc)
		go func() {
			log.Info("SMTP gateway listening", slog.String("addr", sc.Addr), slog.Any("domains", cfg.SMTP.Domains))
			if err := mail.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				errCh <- fmt.Errorf("smtp server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case runErr = <-errCh:
		log.Error("server failed", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	if mail != nil {
		if err := mail.Close(); err != nil {
			log.Error("SMTP shutdown failed", slog.Any("error", err))
		}
	}

	log.Info("Server stopped")
	return runErr
}
