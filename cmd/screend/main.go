package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adgrid/signage/internal/client"
	"github.com/adgrid/signage/internal/config"
	"github.com/adgrid/signage/internal/fetch"
	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/player"
	"github.com/adgrid/signage/internal/queue"
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
		fmt.Printf("screend %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.LoadPlayer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "screend: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "screend",
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, err := fetch.New(cfg.ServerURL, cfg.StorageDir, cfg.FetchTimeout)
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "main.setup_failed").
			Msg("storage setup failed")
	}

	listener, err := client.New(cfg.ServerURL, cfg.DeviceID, fetcher)
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "main.setup_failed").
			Msg("server url invalid")
	}

	scanner := player.NewScanner(cfg.MediaRoot)
	watcher, err := player.NewWatcher(cfg.MediaRoot, scanner)
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "main.setup_failed").
			Msg("media root setup failed")
	}

	sched := player.NewScheduler(
		queue.NewStore(cfg.QueuePath()),
		scanner,
		player.NewConsoleRenderer(),
		player.Config{
			Mode:          cfg.PlayMode,
			Loop:          cfg.Loop,
			ImageDuration: time.Duration(cfg.ImageSeconds) * time.Second,
			VideoDuration: time.Duration(cfg.VideoSeconds) * time.Second,
		},
	)

	logger.Info().
		Str(log.FieldEvent, "main.started").
		Str(log.FieldDeviceID, cfg.DeviceID).
		Str(log.FieldBaseURL, cfg.ServerURL).
		Str(log.FieldPath, cfg.MediaRoot).
		Str("version", version).
		Msg("signage player starting")

	go readCommands(sched.Commands())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		// The scheduler exiting (operator quit) winds down the whole player.
		defer stop()
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).
			Str(log.FieldEvent, "main.stopped").
			Msg("player stopped with error")
		os.Exit(1)
	}

	logger.Info().
		Str(log.FieldEvent, "main.stopped").
		Msg("player stopped")
}

// readCommands maps operator keystrokes (one per line) onto scheduler
// commands. Unknown input is ignored.
func readCommands(cmds chan<- player.Command) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		var kind player.CommandKind
		switch strings.TrimSpace(strings.ToLower(sc.Text())) {
		case "", "n":
			kind = player.CmdSkip
		case "q":
			kind = player.CmdQuit
		case "s":
			kind = player.CmdSequential
		case "r":
			kind = player.CmdRandom
		case "l":
			kind = player.CmdToggleLoop
		case "+":
			kind = player.CmdLonger
		case "-":
			kind = player.CmdShorter
		default:
			continue
		}
		select {
		case cmds <- player.Command{Kind: kind}:
		default:
		}
	}
}
