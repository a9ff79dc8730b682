// Package metrics defines the Prometheus collectors shared across the
// signage server and player.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedScreens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signage_connected_screens",
		Help: "Number of display devices currently registered",
	})

	BroadcastSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signage_broadcast_sends_total",
		Help: "Per-device broadcast send attempts by result",
	}, []string{"result"})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signage_uploads_total",
		Help: "Upload requests by final status",
	}, []string{"status"})

	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signage_upload_bytes_total",
		Help: "Total bytes of media accepted via upload",
	})

	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signage_fetch_total",
		Help: "Device content fetches by result (hit, downloaded, timeout, http_status, unknown)",
	}, []string{"result"})

	FetchBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signage_fetch_bytes_total",
		Help: "Total bytes downloaded into the device cache",
	})

	PlaybackShownTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signage_playback_shown_total",
		Help: "Media items shown by source (queue, scan) and type",
	}, []string{"source", "type"})

	QueueCorruptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signage_queue_corruptions_total",
		Help: "Times the playback queue file was unreadable and treated as empty",
	})
)

// IncBroadcastSend records one per-device send attempt.
func IncBroadcastSend(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	BroadcastSendsTotal.WithLabelValues(result).Inc()
}
