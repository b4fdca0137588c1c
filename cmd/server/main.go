package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "github.com/dyerandrew14/chatchilllaunch-sub000/internal/adapter/driving/http"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/config"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = l

	cfg := config.Load()

	mm := service.New(cfg.LobbyRoom, cfg.Cooldown, l)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go mm.SweepCooldowns(sweepCtx, cfg.SweepInterval)

	h := handler.NewHandler(mm, cfg)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).Str("lobby", cfg.LobbyRoom).Msg("Starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	mm.Shutdown()
	l.Info().Msg("Server exited")
}
