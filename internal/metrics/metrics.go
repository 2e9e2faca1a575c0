// Package metrics exports engine signals to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"blobcraft.ai/internal/sim/world"
)

const namespace = "blobcraft"

// Collector counts engine events and exposes the world's metric snapshot as gauges.
type Collector struct {
	reg prometheus.Registerer

	events    *prometheus.CounterVec
	destroyed *prometheus.CounterVec
	points    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, source func() world.WorldMetrics) *Collector {
	c := &Collector{
		reg: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine events by kind.",
		}, []string{"kind"}),
		destroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "organisms_destroyed_total",
			Help:      "Destroyed organisms, split by whether the round rolled back.",
		}, []string{"rollback"}),
		points: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_points",
			Help:      "Organism resource points after each change.",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 400, 800},
		}, []string{"world"}),
	}
	reg.MustRegister(c.events, c.destroyed, c.points)

	if source != nil {
		gauge := func(name, help string, fn func(m world.WorldMetrics) float64) {
			reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "world",
				Name:      name,
				Help:      help,
			}, func() float64 { return fn(source()) }))
		}
		gauge("tick", "Current world tick.", func(m world.WorldMetrics) float64 { return float64(m.Tick) })
		gauge("organisms", "Live organisms.", func(m world.WorldMetrics) float64 { return float64(m.Organisms) })
		gauge("tiles", "Tiles owned by live organisms.", func(m world.WorldMetrics) float64 { return float64(m.Tiles) })
		gauge("entities", "Entities in the world table.", func(m world.WorldMetrics) float64 { return float64(m.Entities) })
		gauge("possession_sessions", "Possession sessions tracked.", func(m world.WorldMetrics) float64 { return float64(m.Sessions) })
		gauge("faction_members", "Faction roster size.", func(m world.WorldMetrics) float64 { return float64(m.FactionMembers) })
		gauge("pending_timers", "Queued timer tasks.", func(m world.WorldMetrics) float64 { return float64(m.PendingTimers) })
		gauge("request_queue_depth", "Requests waiting for the world loop.", func(m world.WorldMetrics) float64 { return float64(m.QueueDepth) })
		gauge("step_ms", "Duration of the last step in milliseconds.", func(m world.WorldMetrics) float64 { return m.StepMS })
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "resets_total",
			Help:      "Admin resets applied.",
		}, func() float64 { return float64(source().ResetTotal) }))
	}
	return c
}

// WriteEvent implements world.EventSink.
func (c *Collector) WriteEvent(e world.EventEntry) error {
	c.events.WithLabelValues(e.Kind).Inc()
	switch e.Kind {
	case string(world.EventOrganismDestroyed):
		rb, _ := e.Data["rollback"].(bool)
		c.destroyed.WithLabelValues(strconv.FormatBool(rb)).Inc()
	case string(world.EventResourceChanged):
		if v, ok := e.Data["new"].(float64); ok {
			c.points.WithLabelValues(e.World).Observe(v)
		}
	}
	return nil
}

// Queue exposes a background queue (index writer, mirror, feed) as gauges.
func (c *Collector) Queue(name string, depth, dropped func() float64) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "queue_depth",
		Help:        "Items waiting in a background queue.",
		ConstLabels: prometheus.Labels{"queue": name},
	}, depth))
	c.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "queue_dropped_total",
		Help:        "Items dropped by a saturated background queue.",
		ConstLabels: prometheus.Labels{"queue": name},
	}, dropped))
}
