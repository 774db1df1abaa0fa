package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/config"
	"github.com/AnthoniusHendriyanto/auth-core/db"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/handler"
	repo "github.com/AnthoniusHendriyanto/auth-core/internal/auth/repository/postgres"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/service"
	"github.com/AnthoniusHendriyanto/auth-core/internal/logging"
	"github.com/AnthoniusHendriyanto/auth-core/internal/notify"
	"github.com/AnthoniusHendriyanto/auth-core/internal/ratelimit"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.IsProduction(), cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("auth-core stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	store := repo.NewPostgresRepository(dbPool)

	policy := service.PolicyFromConfig(cfg)
	renderer, err := notify.NewRenderer(notify.RendererConfig{
		AppURL:          cfg.AppURL,
		SupportEmail:    cfg.SupportEmail,
		VerificationTTL: policy.VerificationTokenTTL,
		ResetTTL:        policy.ResetTokenTTL,
	})
	if err != nil {
		return err
	}

	var notifier domain.Notifier
	switch cfg.MailDriver {
	case "ses":
		client, err := notify.NewSESClient(cfg.AWSRegion)
		if err != nil {
			return err
		}
		notifier = notify.NewSESNotifier(client, cfg.MailFrom, renderer, logger)
	default:
		notifier = notify.NewLogNotifier(renderer, logger)
	}

	authService := service.NewAuthService(service.Dependencies{
		Users:         store,
		LoginAttempts: store,
		RefreshTokens: store,
		Organizations: store,
		Notifier:      notifier,
		Hasher:        service.NewBcryptHasher(bcrypt.DefaultCost),
		AccessSigner:  service.NewTokenService(cfg.AccessTokenSecret, authconstant.TokenIssuer),
		RefreshSigner: service.NewTokenService(cfg.RefreshTokenSecret, authconstant.TokenIssuer),
		Logger:        logger,
	}, cfg)

	var throttler handler.Throttler
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("request throttling disabled", "error", err)
		} else {
			defer client.Close()
			throttler = ratelimit.New(client, cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)
		}
	}

	authHandler := handler.NewAuthHandler(authService, logger, cfg.IsProduction())
	app := handler.NewApp(authHandler, throttler, cfg.CORSOrigins)

	cleanupDone := authService.StartCleanup(ctx, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port, "env", cfg.Env)
	err = app.Listen(":" + cfg.Port)

	stop()
	<-cleanupDone
	return err
}
