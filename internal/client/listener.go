// Package client implements the device side of the signage channel: a
// WebSocket listener that turns server notifications into local downloads.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adgrid/signage/internal/fetch"
	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/protocol"
)

// Listener holds a single device connection to the signage server.
//
// There is deliberately no reconnect logic: the process supervisor restarts
// the whole player when the connection drops, which also re-syncs local
// state against the server.
type Listener struct {
	wsURL    string
	deviceID string
	fetcher  *fetch.Fetcher
}

// New derives the WebSocket endpoint from the server's HTTP base URL.
func New(serverURL, deviceID string, fetcher *fetch.Fetcher) (*Listener, error) {
	wsURL, err := deriveWSURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Listener{
		wsURL:    wsURL,
		deviceID: deviceID,
		fetcher:  fetcher,
	}, nil
}

func deriveWSURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Run connects and processes notifications until the context is cancelled or
// the connection fails. The returned error is nil only on clean shutdown.
func (l *Listener) Run(ctx context.Context) error {
	ctx = log.ContextWithDeviceID(ctx, l.deviceID)
	logger := log.WithComponentFromContext(ctx, "client")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	logger.Info().
		Str(log.FieldEvent, "client.connected").
		Str("ws_url", l.wsURL).
		Msg("connected to signage server")

	// Cancellation unblocks ReadMessage by closing the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer func() { _ = conn.Close() }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().
					Str(log.FieldEvent, "client.closed").
					Msg("connection closed on shutdown")
				return nil
			}
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "client.read_failed").
				Msg("server connection lost")
			return fmt.Errorf("read notification: %w", err)
		}
		l.handleFrame(ctx, logger, data)
	}
}

func (l *Listener) handleFrame(ctx context.Context, logger zerolog.Logger, data []byte) {
	n := protocol.Parse(string(data))
	switch n.Kind {
	case protocol.KindNewContent:
		if n.Filename == "" {
			logger.Warn().
				Str(log.FieldEvent, "client.empty_filename").
				Msg("notification carried no filename")
			return
		}
		logger.Info().
			Str(log.FieldEvent, "client.new_content").
			Str(log.FieldFilename, n.Filename).
			Msg("new content announced")
		if err := l.fetcher.Fetch(ctx, n.Filename); err != nil {
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "client.fetch_failed").
				Str(log.FieldFilename, n.Filename).
				Msg("fetch failed")
		}
	default:
		logger.Debug().
			Str(log.FieldEvent, "client.unknown_frame").
			Str("raw", n.Raw).
			Msg("ignoring unknown frame")
	}
}
