package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"canvassync/internal/canvas"
	"canvassync/internal/config"
	"canvassync/internal/event"
	"canvassync/internal/handlers"
	"canvassync/internal/middleware"
	"canvassync/internal/session"
	"canvassync/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Local overrides from .env, if present.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	registry := canvas.NewRegistry(cfg.MaxCanvases, cfg.MaxCanvasMembers)
	sessions := session.NewManager()
	router := handlers.NewRouter(registry, event.NewValidator())
	limits := middleware.NewLimits(cfg.MaxMessageSize, cfg.MessagesPerSecond, cfg.BurstSize)
	ipLimiter := middleware.NewIPRateLimit()

	ws := transport.NewHandler(cfg, sessions, router, ipLimiter, limits)
	admin := transport.NewAdminAPI(registry, sessions)

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	mux.Handle("/ws", ws)
	admin.Register(mux)

	go cleanupLimiters(ctx, ipLimiter)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("canvas sync server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

// cleanupLimiters: routine to drop stale per-IP limiters
func cleanupLimiters(ctx context.Context, ipLimiter *middleware.IPRateLimit) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ipLimiter.Cleanup()
		}
	}
}
