package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery counters are incremented by the dispatcher; gauges are registered
// lazily by main once the registries exist.
var (
	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_delivered_total",
		Help: "Events enqueued to client sessions, labelled by addressing scope.",
	}, []string{"scope"})

	WritesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_writes_dropped_total",
		Help: "Per-session writes dropped because the send buffer was full.",
	})

	BridgeFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_bridge_frames_total",
		Help: "Cross-instance bridge frames, labelled published/applied/skipped.",
	}, []string{"direction"})

	SweepRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_sweep_removals_total",
		Help: "Entries reclaimed by periodic sweeps, labelled by sweep kind.",
	}, []string{"kind"})
)

// ObserveGateway registers gauge functions over the live registry counters.
func ObserveGateway(connections, activeUsers, rooms func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_connections",
		Help: "Live websocket connections.",
	}, func() float64 { return float64(connections()) })
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_active_users",
		Help: "Distinct users holding at least one connection.",
	}, func() float64 { return float64(activeUsers()) })
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_rooms",
		Help: "Rooms currently registered.",
	}, func() float64 { return float64(rooms()) })
}
