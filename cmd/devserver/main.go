package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/config"
	"github.com/genzchat/genzchat/internal/handler"
	"github.com/genzchat/genzchat/internal/logging"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := logging.Setup(cfg.Log.Level, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	logger := log.With().Str("component", "devserver").Logger()
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file, using the process environment only")
	}

	items := persona.Seed()
	if path := cfg.Stub.PersonalitiesFile; path != "" {
		items, err = persona.LoadFile(path)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load personalities")
		}
		logger.Info().Str("file", path).Int("count", len(items)).Msg("loaded personalities")
	}

	resp, err := responder.New(ctx, cfg.Stub.ChunkDelay)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build responder")
	}

	router := handler.NewRouter(
		persona.NewMemoryStore(items),
		transcript.NewService(),
		resp,
	)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("component", "devserver").Str("addr", addr).Msg("chat dev server listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
