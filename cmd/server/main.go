package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeeapi/internal/config"
	"coffeeapi/internal/database/backend"
	"coffeeapi/internal/handlers"
	"coffeeapi/internal/middleware"
	"coffeeapi/internal/routing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("COFFEE_CONFIG"), "path to TOML config file")
	port := flag.Int("port", 0, "listen port (overrides config and PORT)")
	host := flag.String("host", "", "listen host (overrides config and HOST)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.ApplyFlagOverrides(cfg, *port, *host)

	setupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg.Storage, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer store.Close()

	if cfg.Auth.APISecret == "" {
		log.Warn().Msg("API_SECRET is not set, PATCH and POST routes will reject every request")
	}

	h := handlers.NewHandler(store)
	h.SetConfig(handlers.Config{
		APISecret: cfg.Auth.APISecret,
		Banner:    cfg.Server.Banner,
	})

	rateLimit := middleware.NewDefaultRateLimitConfig()
	defer rateLimit.Close()

	handler := routing.SetupRouter(routing.Config{
		Handlers:  h,
		ImagesDir: cfg.Images.Dir,
		RateLimit: rateLimit,
		Logger:    log.Logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", srv.Addr).
			Str("backend", cfg.Storage.SelectedBackend()).
			Msg("Starting coffee catalog server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// setupLogging installs the global zerolog logger
func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = log.Logger.Level(level)

	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
	}
}
