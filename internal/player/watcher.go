package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/adgrid/signage/internal/log"
)

// Watcher observes the media root and invalidates the scanner's cached
// listing when content or the queue file changes. It is advisory only and
// mutates no scheduler state.
type Watcher struct {
	fw      *fsnotify.Watcher
	scanner *Scanner
	logger  zerolog.Logger
}

// NewWatcher watches the images/, videos/ and queue/ subfolders of root,
// creating them if needed.
func NewWatcher(root string, scanner *Scanner) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, sub := range []string{"images", "videos", "queue"} {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		fw:      fw,
		scanner: scanner,
		logger:  log.WithComponent("watcher"),
	}, nil
}

// Run consumes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fw.Close(); err != nil {
			w.logger.Debug().Err(err).Msg("close watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scanner.Invalidate()
			w.logger.Debug().
				Str("event", "player.refresh").
				Str(log.FieldPath, event.Name).
				Str("op", event.Op.String()).
				Msg("media root changed, listing invalidated")
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).
				Str("event", "watcher.error").
				Msg("watcher error")
		}
	}
}
