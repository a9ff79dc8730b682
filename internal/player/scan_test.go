package player

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adgrid/signage/internal/queue"
)

func writeMedia(t *testing.T, root, sub string, names ...string) {
	t.Helper()
	dir := filepath.Join(root, sub)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestScanFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeMedia(t, root, "images", "a.PNG", "b.jpeg", "notes.txt", "c.gif")
	writeMedia(t, root, "videos", "d.mp4", "e.MKV", "readme.md")

	got := NewScanner(root).Scan()

	names := make([]string, 0, len(got))
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a.PNG", "b.jpeg", "c.gif", "d.mp4", "e.MKV"}, names)

	for _, m := range got[:3] {
		assert.Equal(t, queue.TypeImage, m.Type)
	}
	for _, m := range got[3:] {
		assert.Equal(t, queue.TypeVideo, m.Type)
	}
}

func TestScanMissingFoldersYieldEmpty(t *testing.T) {
	got := NewScanner(t.TempDir()).Scan()
	assert.Empty(t, got)
}

func TestScanCachesUntilInvalidated(t *testing.T) {
	root := t.TempDir()
	writeMedia(t, root, "images", "a.png")

	s := NewScanner(root)
	require.Len(t, s.Scan(), 1)

	writeMedia(t, root, "images", "b.png")

	// Cached listing is reused until invalidated.
	assert.Len(t, s.Scan(), 1)
	s.Invalidate()
	assert.Len(t, s.Scan(), 2)
}

func TestScanReturnsCopies(t *testing.T) {
	root := t.TempDir()
	writeMedia(t, root, "images", "a.png")

	s := NewScanner(root)
	first := s.Scan()
	first[0].Name = "mutated"

	assert.Equal(t, "a.png", s.Scan()[0].Name)
}
