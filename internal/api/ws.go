package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adgrid/signage/internal/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Devices are headless clients, not browsers; origin checks do not apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to the registry's Conn interface and
// bounds every write with a deadline.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) WriteText(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// handleWS upgrades a device connection, registers it, and drains inbound
// frames until the device goes away. Everything a device sends is treated
// as a heartbeat/log line and otherwise ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "ws")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).
			Str("event", "ws.upgrade_failed").
			Str(log.FieldRemoteAddr, r.RemoteAddr).
			Msg("websocket upgrade failed")
		return
	}

	device := s.reg.Register(&wsConn{conn: conn, writeTimeout: s.cfg.SendTimeout}, r.RemoteAddr)
	defer s.reg.Unregister(device)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).
					Str("event", "ws.read_failed").
					Str(log.FieldDeviceID, device.ID()).
					Msg("device connection lost")
			} else {
				logger.Info().
					Str("event", "ws.closed").
					Str(log.FieldDeviceID, device.ID()).
					Msg("device disconnected")
			}
			return
		}
		logger.Debug().
			Str("event", "ws.heartbeat").
			Str(log.FieldDeviceID, device.ID()).
			Str("payload", string(data)).
			Msg("inbound device message")
	}
}
