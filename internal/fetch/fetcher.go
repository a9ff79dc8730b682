// Package fetch implements the device-side download-and-cache workflow.
//
// A filename is fetched at most once: presence of the file in the storage
// directory is the sole cache-hit criterion, and the download is written
// through an atomic rename so a half-written file can never be mistaken for
// a valid cache entry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/adgrid/signage/internal/fsutil"
	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
)

const copyChunkSize = 32 * 1024

// Fetcher downloads announced media files into a flat local cache directory.
type Fetcher struct {
	baseURL string
	dir     string
	client  *http.Client
	group   singleflight.Group
}

// New returns a fetcher downloading from baseURL/media/<filename> into dir.
// timeout bounds every request end to end.
func New(baseURL, dir string, timeout time.Duration) (*Fetcher, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Fetcher{
		baseURL: baseURL,
		dir:     dir,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Fetch resolves a cache hit or downloads filename. Concurrent fetches of
// the same filename are coalesced so duplicate notifications cannot race two
// downloads onto the same path.
func (f *Fetcher) Fetch(ctx context.Context, filename string) error {
	name, err := fsutil.SafeBaseName(filename)
	if err != nil {
		return &Error{Kind: KindUnknown, Filename: filename, Err: err}
	}

	_, err, _ = f.group.Do(name, func() (interface{}, error) {
		return nil, f.fetchOne(ctx, name)
	})
	return err
}

func (f *Fetcher) fetchOne(ctx context.Context, name string) error {
	logger := log.WithComponentFromContext(ctx, "fetch")

	localPath, err := fsutil.ConfineRelPath(f.dir, name)
	if err != nil {
		metrics.FetchTotal.WithLabelValues(KindUnknown.String()).Inc()
		return &Error{Kind: KindUnknown, Filename: name, Err: err}
	}

	if err := fsutil.IsRegularFile(localPath); err == nil {
		metrics.FetchTotal.WithLabelValues("hit").Inc()
		logger.Info().
			Str("event", "fetch.cache_hit").
			Str(log.FieldFilename, name).
			Str(log.FieldPath, localPath).
			Msg("cache hit, download skipped")
		return nil
	}

	start := time.Now()
	fileURL := f.baseURL + "/media/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		metrics.FetchTotal.WithLabelValues(KindUnknown.String()).Inc()
		return &Error{Kind: KindUnknown, Filename: name, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.fail(logger, name, classifyTransport(name, err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return f.fail(logger, name, &Error{Kind: KindHTTPStatus, Filename: name, Status: resp.StatusCode})
	}

	// Stream through a pending file; only a completed download is renamed
	// into place, so failures leave no partial cache entry behind.
	pending, err := renameio.NewPendingFile(localPath)
	if err != nil {
		return f.fail(logger, name, &Error{Kind: KindUnknown, Filename: name, Err: err})
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending download")
		}
	}()

	written, err := copyChunks(pending, resp.Body)
	if err != nil {
		return f.fail(logger, name, classifyTransport(name, err))
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return f.fail(logger, name, &Error{Kind: KindUnknown, Filename: name, Err: err})
	}

	metrics.FetchTotal.WithLabelValues("downloaded").Inc()
	metrics.FetchBytesTotal.Add(float64(written))
	logger.Info().
		Str("event", "fetch.downloaded").
		Str(log.FieldFilename, name).
		Str(log.FieldPath, localPath).
		Float64(log.FieldSizeKB, float64(written)/1024).
		Dur("duration", time.Since(start)).
		Msg("download complete")
	return nil
}

func (f *Fetcher) fail(logger zerolog.Logger, name string, ferr *Error) error {
	metrics.FetchTotal.WithLabelValues(ferr.Kind.String()).Inc()
	logger.Warn().
		Err(ferr).
		Str("event", "fetch.failed").
		Str(log.FieldFilename, name).
		Str("kind", ferr.Kind.String()).
		Msg("fetch failed")
	return ferr
}

// copyChunks streams src to dst in fixed-size chunks, skipping empty reads,
// and returns the byte count written.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func classifyTransport(name string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &Error{Kind: KindTimeout, Filename: name, Err: err}
	}
	return &Error{Kind: KindUnknown, Filename: name, Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
