package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRoomsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveshare_rooms_started_total",
		Help: "Total rooms successfully initialized",
	})

	metricRoomsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveshare_rooms_ended_total",
		Help: "Total rooms terminated, by reason",
	}, []string{"reason"})

	metricRoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liveshare_rooms_active",
		Help: "Rooms currently active in this process",
	})

	metricViewersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liveshare_viewers_connected",
		Help: "Viewer sockets currently connected",
	})

	metricViewerRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveshare_viewer_rejects_total",
		Help: "Viewer sockets refused, by reason",
	}, []string{"reason"})

	metricHostUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveshare_host_updates_total",
		Help: "Accepted host state updates",
	})

	metricBroadcastFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveshare_broadcast_frames_total",
		Help: "State frames fanned out to viewers",
	})
)
