package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adgrid/signage/internal/api"
	"github.com/adgrid/signage/internal/broadcast"
	"github.com/adgrid/signage/internal/config"
	"github.com/adgrid/signage/internal/registry"
)

type testServer struct {
	ts       *httptest.Server
	reg      *registry.Registry
	mediaDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Server{
		MediaDir:       t.TempDir(),
		MaxUploadBytes: 10 << 20,
		UploadRateRPM:  1000,
		SendTimeout:    time.Second,
	}
	reg := registry.New()
	srv, err := api.New(cfg, reg, broadcast.New(reg))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{ts: ts, reg: reg, mediaDir: cfg.MediaDir}
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
}

func dialScreen(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func uploadFile(t *testing.T, s *testServer, filename string, payload []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(s.ts.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readLine(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestUploadBroadcastsToConnectedScreens(t *testing.T) {
	s := newTestServer(t)

	screen1 := dialScreen(t, s)
	screen2 := dialScreen(t, s)
	leaving := dialScreen(t, s)

	require.Eventually(t, func() bool { return s.reg.Count() == 3 }, 2*time.Second, 5*time.Millisecond)

	// One device disconnects just before the upload.
	require.NoError(t, leaving.Close())
	require.Eventually(t, func() bool { return s.reg.Count() == 2 }, 2*time.Second, 5*time.Millisecond)

	payload := bytes.Repeat([]byte{0xAB}, 500*1024)
	resp := uploadFile(t, s, "ad1.png", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Status          string  `json:"status"`
		RequestID       string  `json:"request_id"`
		Filename        string  `json:"filename"`
		FileURL         string  `json:"file_url"`
		FileSizeKB      float64 `json:"file_size_kb"`
		NotifiedScreens int     `json:"notified_screens"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "uploaded", got.Status)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "ad1.png", got.Filename)
	assert.Equal(t, "/media/ad1.png", got.FileURL)
	assert.InDelta(t, 500.0, got.FileSizeKB, 0.01)
	assert.Equal(t, 2, got.NotifiedScreens)

	assert.Equal(t, "NEW_CONTENT:ad1.png", readLine(t, screen1))
	assert.Equal(t, "NEW_CONTENT:ad1.png", readLine(t, screen2))

	written, err := os.ReadFile(filepath.Join(s.mediaDir, "ad1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestHeartbeatsDoNotDisturbBroadcast(t *testing.T) {
	s := newTestServer(t)
	screen := dialScreen(t, s)

	require.Eventually(t, func() bool { return s.reg.Count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, screen.WriteMessage(websocket.TextMessage, []byte("heartbeat SCREEN_101")))

	resp := uploadFile(t, s, "promo.mp4", []byte("video-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "NEW_CONTENT:promo.mp4", readLine(t, screen))
}

func TestUploadSanitizesFilename(t *testing.T) {
	s := newTestServer(t)

	resp := uploadFile(t, s, "../../evil.png", []byte("x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Filename string `json:"filename"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "evil.png", got.Filename)

	_, err := os.Stat(filepath.Join(s.mediaDir, "evil.png"))
	assert.NoError(t, err)
}

func TestUploadWithoutFileIsRejected(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Post(s.ts.URL+"/upload", "multipart/form-data; boundary=xxx", strings.NewReader("--xxx--\r\n"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "error", got.Status)
	assert.NotEmpty(t, got.Message)
}

func TestMediaServing(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.mediaDir, "ad1.png"), []byte("png-bytes"), 0o644))

	resp, err := http.Get(s.ts.URL + "/media/ad1.png")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", buf.String())

	missing, err := http.Get(s.ts.URL + "/media/absent.png")
	require.NoError(t, err)
	_ = missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	traversal, err := http.Get(s.ts.URL + "/media/..%2Fsecret")
	require.NoError(t, err)
	_ = traversal.Body.Close()
	assert.Equal(t, http.StatusNotFound, traversal.StatusCode)
}

func TestHealthReportsConnectedScreens(t *testing.T) {
	s := newTestServer(t)
	dialScreen(t, s)
	require.Eventually(t, func() bool { return s.reg.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get(s.ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Status           string `json:"status"`
		ConnectedScreens int    `json:"connected_screens"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 1, got.ConnectedScreens)
}
