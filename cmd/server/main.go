package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/skyrc/skyrc/internal/adapters/http"
	wssignal "github.com/skyrc/skyrc/internal/adapters/signal"
	"github.com/skyrc/skyrc/internal/app"
	"github.com/skyrc/skyrc/internal/auth"
	"github.com/skyrc/skyrc/internal/config"
	"github.com/skyrc/skyrc/internal/core"
	"github.com/skyrc/skyrc/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// All state is lifecycle-scoped and injected: constructed once here,
	// shared by the coordinator and the query surface.
	sessions := app.NewSessionStore(cfg.Session.AbsoluteTTL, cfg.Session.MaxIdle, collector)
	presence := core.NewPresence()
	coordinator := app.NewCoordinator(presence, collector)
	directory := app.NewDirectory(presence)

	provider, err := auth.NewOAuthProvider(auth.Settings{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		RevokeURL:    cfg.OAuth.RevokeURL,
		ProfileURL:   cfg.OAuth.ProfileURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init identity provider")
	}

	if cfg.Session.SweepInterval > 0 {
		go sessions.Sweep(ctx, cfg.Session.SweepInterval)
	}

	signalCtl := wssignal.NewController(coordinator, sessions, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Sessions:  sessions,
		Directory: directory,
		Provider:  provider,
		Signal:    signalCtl,
		Metrics:   metrics.Handler(registry),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("skyrc server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
