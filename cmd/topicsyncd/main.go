package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/topicsync/internal/config"
	"github.com/erauner12/topicsync/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "topicsyncd").Logger()

	cfg := config.Load()
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	srv := server.New(cfg, log.Logger)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The update-buffer clock and the HTTP/WebSocket listener are two
	// independent long-running loops; group.Wait blocks until both have
	// exited, and either one returning an error cancels group's context so
	// the other is asked to shut down too instead of leaking.
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		srv.Run()
		return nil
	})

	group.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting topicsyncd")
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
		srv.Stop()
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("topicsyncd exited with error")
	}
	log.Info().Msg("server stopped")
}
