// Package broadcast fans out new-content events to every registered device.
package broadcast

import (
	"context"

	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
	"github.com/adgrid/signage/internal/protocol"
	"github.com/adgrid/signage/internal/registry"
)

// Dispatcher pushes content notifications to a snapshot of the registry.
// Delivery is best effort: there is no retry and no persistence, a device
// offline at broadcast time misses the event.
type Dispatcher struct {
	reg *registry.Registry
}

// New returns a dispatcher bound to reg.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Broadcast announces filename to all currently registered devices and
// returns the number of successful sends. A send failure on one device is
// logged, the dead handle is unregistered, and delivery to the remaining
// devices continues.
func (d *Dispatcher) Broadcast(ctx context.Context, filename string) int {
	logger := log.WithComponentFromContext(ctx, "broadcast")

	if filename == "" {
		logger.Warn().
			Str("event", "broadcast.empty_filename").
			Msg("refusing to broadcast empty filename")
		return 0
	}

	msg := []byte(protocol.FormatNewContent(filename))
	snapshot := d.reg.Snapshot()

	sent := 0
	for _, dev := range snapshot {
		if err := dev.Send(msg); err != nil {
			metrics.IncBroadcastSend(false)
			logger.Warn().
				Err(err).
				Str("event", "broadcast.send_failed").
				Str(log.FieldDeviceID, dev.ID()).
				Str(log.FieldRemoteAddr, dev.RemoteAddr()).
				Str(log.FieldFilename, filename).
				Msg("dropping device after failed send")
			d.reg.Unregister(dev)
			continue
		}
		metrics.IncBroadcastSend(true)
		sent++
	}

	logger.Info().
		Str("event", "broadcast.completed").
		Str(log.FieldFilename, filename).
		Int("targets", len(snapshot)).
		Int("notified_screens", sent).
		Msg("broadcast completed")
	return sent
}
