package player

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/queue"
)

var (
	imageExts = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	}
	videoExts = map[string]struct{}{
		".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {},
	}
)

// Scanner lists the playable files under the media root's images/ and
// videos/ subfolders. The listing is cached until Invalidate is called; the
// filesystem watcher invalidates it when the directories change.
type Scanner struct {
	root string

	mu     sync.Mutex
	cached []Media
	valid  bool
}

// NewScanner returns a scanner rooted at the media directory.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan returns the flat candidate list in directory-scan order. Consecutive
// calls reuse the cached listing until it is invalidated.
func (s *Scanner) Scan() []Media {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		s.cached = s.scan()
		s.valid = true
	}
	return append([]Media(nil), s.cached...)
}

// Invalidate drops the cached listing so the next Scan rereads disk.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *Scanner) scan() []Media {
	var out []Media
	out = appendDir(out, filepath.Join(s.root, "images"), queue.TypeImage, imageExts)
	out = appendDir(out, filepath.Join(s.root, "videos"), queue.TypeVideo, videoExts)

	logger := log.WithComponent("scanner")
	logger.Debug().
		Str("event", "scan.completed").
		Str(log.FieldPath, s.root).
		Int("candidates", len(out)).
		Msg("local media scan")
	return out
}

func appendDir(out []Media, dir, mediaType string, exts map[string]struct{}) []Media {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Missing subfolder simply contributes nothing.
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := exts[ext]; !ok {
			continue
		}
		out = append(out, Media{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Type: mediaType,
		})
	}
	return out
}
