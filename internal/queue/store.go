// Package queue persists the ordered playback queue shared between the
// refresh watcher and the scheduler.
//
// The backing file is a JSON array; every rewrite goes through an atomic
// replace so the file is valid JSON at all times. The read-modify-write in
// MarkPlayed is not protected against concurrent writers: the design assumes
// a single playback process per device.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
)

// Media types stored in the queue file.
const (
	TypeImage = "image"
	TypeVideo = "video"
)

// Item is one pending or played media reference.
type Item struct {
	Path     string     `json:"path"`
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Played   bool       `json:"played"`
	PlayedAt *time.Time `json:"played_at,omitempty"`
}

// Store reads and mutates the queue file at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store for the queue file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load returns all items in file order. A missing file yields an empty
// queue; a malformed file is logged and likewise treated as empty, never as
// a fatal error. Filtering for unplayed items is the caller's concern.
func (s *Store) Load() ([]Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		metrics.QueueCorruptionsTotal.Inc()
		logger := log.WithComponent("queue")
		logger.Warn().
			Err(err).
			Str("event", "queue.corrupt").
			Str(log.FieldPath, s.path).
			Msg("queue file unreadable, treating as empty")
		return nil, nil
	}
	return items, nil
}

// MarkPlayed flags the first item whose Path equals path as played and
// rewrites the file. Marking an already-played item again is a no-op, so the
// played flag only ever transitions false to true. An unknown path is also a
// no-op.
func (s *Store) MarkPlayed(path string) error {
	items, err := s.Load()
	if err != nil {
		return err
	}

	changed := false
	for i := range items {
		if items[i].Path != path {
			continue
		}
		if !items[i].Played {
			now := s.now()
			items[i].Played = true
			items[i].PlayedAt = &now
			changed = true
		}
		break
	}
	if !changed {
		return nil
	}
	return s.write(items)
}

func (s *Store) write(items []Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	return nil
}
