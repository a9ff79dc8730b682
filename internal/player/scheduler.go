package player

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
	"github.com/adgrid/signage/internal/queue"
)

// Selection modes for the local-scan fallback.
const (
	ModeSequential = "sequential"
	ModeRandom     = "random"
)

// Duration clamps, matching the original operator controls.
const (
	durationStep = 5 * time.Second
	minImageDur  = 1 * time.Second
	maxImageDur  = 60 * time.Second
	minVideoDur  = 2 * time.Second
	maxVideoDur  = 120 * time.Second
)

// Config carries the scheduler's initial playback state.
type Config struct {
	Mode          string
	Loop          bool
	ImageDuration time.Duration
	VideoDuration time.Duration

	// WaitingDelay is the retry delay after an empty selection; ErrorGrace
	// the dwell time on the error state; Poll the input poll interval.
	// Zero values pick the defaults (2s / 3s / 100ms).
	WaitingDelay time.Duration
	ErrorGrace   time.Duration
	Poll         time.Duration
}

// Scheduler owns the playback state and runs the render/wait loop. Only the
// scheduler mutates its state; external activity reaches it through the
// command channel and the queue file.
type Scheduler struct {
	store    *queue.Store
	scanner  *Scanner
	renderer Renderer
	cmds     chan Command
	logger   zerolog.Logger

	mode     string
	loop     bool
	idx      int
	imageDur time.Duration
	videoDur time.Duration

	waitingDelay time.Duration
	errorGrace   time.Duration
	poll         time.Duration

	randInt func(n int) int
}

// NewScheduler wires a scheduler from its collaborators.
func NewScheduler(store *queue.Store, scanner *Scanner, renderer Renderer, cfg Config) *Scheduler {
	s := &Scheduler{
		store:        store,
		scanner:      scanner,
		renderer:     renderer,
		cmds:         make(chan Command, 16),
		logger:       log.WithComponent("scheduler"),
		mode:         cfg.Mode,
		loop:         cfg.Loop,
		imageDur:     cfg.ImageDuration,
		videoDur:     cfg.VideoDuration,
		waitingDelay: cfg.WaitingDelay,
		errorGrace:   cfg.ErrorGrace,
		poll:         cfg.Poll,
		randInt:      rand.Intn,
	}
	if s.mode == "" {
		s.mode = ModeSequential
	}
	if s.imageDur <= 0 {
		s.imageDur = 5 * time.Second
	}
	if s.videoDur <= 0 {
		s.videoDur = 10 * time.Second
	}
	if s.waitingDelay <= 0 {
		s.waitingDelay = 2 * time.Second
	}
	if s.errorGrace <= 0 {
		s.errorGrace = 3 * time.Second
	}
	if s.poll <= 0 {
		s.poll = 100 * time.Millisecond
	}
	return s
}

// Commands returns the channel operator input is delivered on.
func (s *Scheduler) Commands() chan<- Command {
	return s.cmds
}

// SelectNext picks the next item to show. Queue-sourced items always win
// over local-scan results; a queue item is marked played as part of
// selection. A nil Media with nil error means there is nothing to show.
func (s *Scheduler) SelectNext() (*Media, error) {
	items, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Played {
			continue
		}
		if err := s.store.MarkPlayed(it.Path); err != nil {
			return nil, err
		}
		return &Media{Path: it.Path, Name: it.Name, Type: it.Type, FromQueue: true}, nil
	}

	candidates := s.scanner.Scan()
	if len(candidates) == 0 {
		return nil, nil
	}

	if s.mode == ModeRandom {
		m := candidates[s.randInt(len(candidates))]
		return &m, nil
	}

	// Sequential: the modulus clamps the cursor even when the candidate
	// list shrank since the previous call.
	s.idx %= len(candidates)
	m := candidates[s.idx]
	s.idx = (s.idx + 1) % len(candidates)
	return &m, nil
}

// Run executes the scheduler state machine until ctx is cancelled or a quit
// command arrives. Render failures show a transient error state and the loop
// re-selects after a fixed grace period.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Str("event", "scheduler.started").
		Str("mode", s.mode).
		Bool("loop", s.loop).
		Msg("playback scheduler started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		media, err := s.SelectNext()
		if err != nil {
			s.logger.Warn().Err(err).
				Str("event", "scheduler.select_failed").
				Msg("selection failed, showing waiting state")
		}
		if media == nil {
			s.renderer.ShowWaiting()
			if s.wait(ctx, s.waitingDelay) == waitQuit {
				return ctx.Err()
			}
			continue
		}

		d := s.durationFor(media.Type)
		if err := s.renderer.ShowMedia(*media, d); err != nil {
			s.logger.Warn().Err(err).
				Str("event", "scheduler.render_failed").
				Str(log.FieldFilename, media.Name).
				Msg("render failed")
			s.renderer.ShowError("failed to load: " + media.Name)
			if s.wait(ctx, s.errorGrace) == waitQuit {
				return ctx.Err()
			}
			continue
		}

		source := "scan"
		if media.FromQueue {
			source = "queue"
		}
		metrics.PlaybackShownTotal.WithLabelValues(source, media.Type).Inc()

		if s.wait(ctx, d) == waitQuit {
			return ctx.Err()
		}

		// With looping off, park after completing a full sequential pass
		// until the operator intervenes.
		if !s.loop && !media.FromQueue && s.mode == ModeSequential && s.idx == 0 {
			s.logger.Info().
				Str("event", "scheduler.cycle_complete").
				Msg("loop disabled, pausing playback")
			if s.park(ctx) == waitQuit {
				return ctx.Err()
			}
		}
	}
}

type waitOutcome int

const (
	waitElapsed waitOutcome = iota
	waitSkip
	waitQuit
)

// wait blocks for d while polling for cancellation and commands at the
// configured interval, so input latency stays bounded during long displays.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) waitOutcome {
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return waitQuit
		case cmd := <-s.cmds:
			if out, done := s.apply(cmd); done {
				return out
			}
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return waitElapsed
			}
		}
	}
}

// park holds the waiting state until a command or cancellation arrives.
func (s *Scheduler) park(ctx context.Context) waitOutcome {
	s.renderer.ShowWaiting()
	for {
		select {
		case <-ctx.Done():
			return waitQuit
		case cmd := <-s.cmds:
			if out, done := s.apply(cmd); done {
				return out
			}
			if s.loop {
				return waitElapsed
			}
		}
	}
}

// apply mutates playback state for cmd. The second return is true when the
// current wait should end, with the outcome to surface.
func (s *Scheduler) apply(cmd Command) (waitOutcome, bool) {
	switch cmd.Kind {
	case CmdQuit:
		s.logger.Info().Str("event", "scheduler.quit").Msg("quit requested")
		return waitQuit, true
	case CmdSkip:
		s.logger.Info().Str("event", "scheduler.skip").Msg("skip requested")
		return waitSkip, true
	case CmdSequential:
		s.mode = ModeSequential
		s.logger.Info().Str("event", "scheduler.mode").Str("mode", s.mode).Msg("sequential mode")
	case CmdRandom:
		s.mode = ModeRandom
		s.logger.Info().Str("event", "scheduler.mode").Str("mode", s.mode).Msg("random mode")
	case CmdToggleLoop:
		s.loop = !s.loop
		s.logger.Info().Str("event", "scheduler.loop").Bool("loop", s.loop).Msg("loop toggled")
	case CmdLonger:
		s.imageDur = clampDur(s.imageDur+durationStep, minImageDur, maxImageDur)
		s.videoDur = clampDur(s.videoDur+durationStep, minVideoDur, maxVideoDur)
		s.logDurations()
	case CmdShorter:
		s.imageDur = clampDur(s.imageDur-durationStep, minImageDur, maxImageDur)
		s.videoDur = clampDur(s.videoDur-durationStep, minVideoDur, maxVideoDur)
		s.logDurations()
	}
	return waitElapsed, false
}

func (s *Scheduler) logDurations() {
	s.logger.Info().
		Str("event", "scheduler.durations").
		Dur("image", s.imageDur).
		Dur("video", s.videoDur).
		Msg("display durations changed")
}

func (s *Scheduler) durationFor(mediaType string) time.Duration {
	if mediaType == queue.TypeVideo {
		return s.videoDur
	}
	return s.imageDur
}

func clampDur(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
