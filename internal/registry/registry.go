// Package registry tracks the live device connections held by the server.
//
// The registry owns each connection for its lifetime: a Device is created on
// a successful handshake and destroyed on disconnect or send failure, so the
// registry only ever contains connections currently able to receive.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
)

// Conn is the transport half of a device connection. The api package adapts
// the WebSocket connection to it; tests substitute fakes.
type Conn interface {
	// WriteText sends one text frame. Implementations need not be safe for
	// concurrent use; Device serialises writers.
	WriteText(data []byte) error
	Close() error
}

// Device is an opaque handle to one live device connection.
type Device struct {
	id          string
	remoteAddr  string
	connectedAt time.Time
	conn        Conn

	writeMu sync.Mutex
}

// ID returns the registry-assigned connection ID.
func (d *Device) ID() string { return d.id }

// RemoteAddr returns the peer address recorded at registration.
func (d *Device) RemoteAddr() string { return d.remoteAddr }

// ConnectedAt returns the registration timestamp.
func (d *Device) ConnectedAt() time.Time { return d.connectedAt }

// Send writes one text frame to the device, serialising concurrent senders.
func (d *Device) Send(data []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.conn.WriteText(data)
}

// Registry is a thread-safe set of live device connections.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	order   []string // registration order for Snapshot
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds a freshly accepted connection and returns its handle.
func (r *Registry) Register(conn Conn, remoteAddr string) *Device {
	d := &Device{
		id:          uuid.NewString(),
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		conn:        conn,
	}

	r.mu.Lock()
	r.devices[d.id] = d
	r.order = append(r.order, d.id)
	count := len(r.devices)
	r.mu.Unlock()

	metrics.ConnectedScreens.Set(float64(count))
	logger := log.WithComponent("registry")
	logger.Info().
		Str("event", "device.registered").
		Str(log.FieldDeviceID, d.id).
		Str(log.FieldRemoteAddr, remoteAddr).
		Int("connected_screens", count).
		Msg("device registered")
	return d
}

// Unregister removes the handle and closes its connection. Unregistering an
// absent handle is a no-op.
func (r *Registry) Unregister(d *Device) {
	if d == nil {
		return
	}

	r.mu.Lock()
	_, present := r.devices[d.id]
	if present {
		delete(r.devices, d.id)
		for i, id := range r.order {
			if id == d.id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	count := len(r.devices)
	r.mu.Unlock()

	if !present {
		return
	}
	_ = d.conn.Close()

	metrics.ConnectedScreens.Set(float64(count))
	logger := log.WithComponent("registry")
	logger.Info().
		Str("event", "device.unregistered").
		Str(log.FieldDeviceID, d.id).
		Str(log.FieldRemoteAddr, d.remoteAddr).
		Int("connected_screens", count).
		Msg("device unregistered")
}

// Snapshot returns a point-in-time copy of the live devices in registration
// order. Broadcast iterates the copy, never the live set.
func (r *Registry) Snapshot() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Device, 0, len(r.devices))
	for _, id := range r.order {
		if d, ok := r.devices[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
