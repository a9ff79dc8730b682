package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adgrid/signage/internal/api"
	"github.com/adgrid/signage/internal/broadcast"
	"github.com/adgrid/signage/internal/config"
	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/registry"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("signaged %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signaged: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "signaged",
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	srv, err := api.New(cfg, reg, broadcast.New(reg))
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "main.setup_failed").
			Msg("server setup failed")
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str(log.FieldEvent, "main.started").
		Str("listen", cfg.ListenAddr).
		Str(log.FieldPath, cfg.MediaDir).
		Str("version", version).
		Msg("signage server listening")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "main.stopped").
			Msg("server stopped with error")
		os.Exit(1)
	}

	logger.Info().
		Str(log.FieldEvent, "main.stopped").
		Msg("server stopped")
}
