package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the server's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ActiveConnections  prometheus.Gauge
	ActiveBoards       prometheus.Gauge
	ActiveParticipants prometheus.Gauge
	EventsRelayed      *prometheus.CounterVec
	EventsRejected     *prometheus.CounterVec
	MessagesDropped    prometheus.Counter

	RepositoryOps *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_active_connections",
			Help:      "Open websocket connections",
		}),
		ActiveBoards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "presence_active_boards",
			Help:      "Boards with at least one joined participant",
		}),
		ActiveParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "presence_active_participants",
			Help:      "Participants joined to a board",
		}),
		EventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_events_relayed_total",
			Help:      "Board command events relayed to other participants",
		}, []string{"type", "undo"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_events_rejected_total",
			Help:      "Inbound websocket messages that could not be handled",
		}, []string{"reason"}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_dropped_total",
			Help:      "Outbound messages dropped because a client's send buffer was full",
		}),
		RepositoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_operations_total",
			Help:      "Board repository operations by result",
		}, []string{"op", "result"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ActiveConnections,
		c.ActiveBoards,
		c.ActiveParticipants,
		c.EventsRelayed,
		c.EventsRejected,
		c.MessagesDropped,
		c.RepositoryOps,
		collectors.NewGoCollector(),
	)

	return c
}

// SetPresence records the registry's current size.
func (c *Collector) SetPresence(boards, participants int) {
	c.ActiveBoards.Set(float64(boards))
	c.ActiveParticipants.Set(float64(participants))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
