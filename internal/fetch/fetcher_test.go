package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adgrid/signage/internal/fetch"
)

func newMediaServer(t *testing.T, files map[string][]byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := filepath.Base(r.URL.Path)
		body, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	payload := make([]byte, 500*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	srv, hits := newMediaServer(t, map[string][]byte{"ad1.png": payload})

	dir := t.TempDir()
	f, err := fetch.New(srv.URL, dir, 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, f.Fetch(context.Background(), "ad1.png"))

	got, err := os.ReadFile(filepath.Join(dir, "ad1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.EqualValues(t, 1, hits.Load())

	// Second fetch is a pure cache hit: no network call, file untouched.
	require.NoError(t, f.Fetch(context.Background(), "ad1.png"))
	assert.EqualValues(t, 1, hits.Load())

	got2, err := os.ReadFile(filepath.Join(dir, "ad1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, got2)
}

func TestFetchClassifiesHTTPStatus(t *testing.T) {
	srv, _ := newMediaServer(t, nil)

	f, err := fetch.New(srv.URL, t.TempDir(), 5*time.Second)
	require.NoError(t, err)

	err = f.Fetch(context.Background(), "missing.png")
	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.KindHTTPStatus, ferr.Kind)
	assert.Equal(t, http.StatusNotFound, ferr.Status)
}

func TestFetchClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(srv.Close)

	f, err := fetch.New(srv.URL, t.TempDir(), 100*time.Millisecond)
	require.NoError(t, err)

	err = f.Fetch(context.Background(), "slow.png")
	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.KindTimeout, ferr.Kind)
}

func TestFetchClassifiesTransportFault(t *testing.T) {
	srv, _ := newMediaServer(t, nil)
	srv.Close() // connection refused from here on

	f, err := fetch.New(srv.URL, t.TempDir(), time.Second)
	require.NoError(t, err)

	err = f.Fetch(context.Background(), "x.png")
	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.KindUnknown, ferr.Kind)
}

func TestFailedFetchLeavesNoPartialFile(t *testing.T) {
	// Body write is cut short: announce a large payload, deliver a fragment.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write([]byte("fragment"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	f, err := fetch.New(srv.URL, dir, 5*time.Second)
	require.NoError(t, err)

	err = f.Fetch(context.Background(), "broken.png")
	require.Error(t, err)

	// The failed download must not satisfy a future cache-hit check.
	_, statErr := os.Stat(filepath.Join(dir, "broken.png"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "partial file published: %v", statErr)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestFetchRejectsTraversalFilename(t *testing.T) {
	srv, hits := newMediaServer(t, nil)

	f, err := fetch.New(srv.URL, t.TempDir(), time.Second)
	require.NoError(t, err)

	err = f.Fetch(context.Background(), "..")
	require.Error(t, err)
	assert.EqualValues(t, 0, hits.Load())
}

func TestConcurrentFetchesCoalesce(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("payload"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	f, err := fetch.New(srv.URL, dir, 5*time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.Fetch(context.Background(), "burst.png")
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, hits.Load(), "duplicate notifications raced separate downloads")

	got, err := os.ReadFile(filepath.Join(dir, "burst.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
