package clnet

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons of sequenced datagrams
const (
	DropNoSession = "no_session"
	DropRunt      = "runt"
	DropForeign   = "foreign"
	DropRejected  = "rejected"
)

// Metrics holds the counters of a Client.
type Metrics struct {
	Datagrams       *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	Connectionless  *prometheus.CounterVec
	ConnectAttempts prometheus.Counter
	Timeouts        prometheus.Counter
	Disconnects     prometheus.Counter
	State           prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
// reg may be nil to keep them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Datagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clnet_datagrams_received_total",
			Help: "Datagrams received, by framing",
		}, []string{"framing"}),

		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clnet_datagrams_dropped_total",
			Help: "Sequenced datagrams dropped, by reason",
		}, []string{"reason"}),

		Connectionless: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clnet_connectionless_commands_total",
			Help: "Connectionless commands received, by command",
		}, []string{"command"}),

		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clnet_connect_attempts_total",
			Help: "Challenge and connect requests sent",
		}),

		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clnet_timeouts_total",
			Help: "Sessions ended by a connection timeout",
		}),

		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clnet_disconnects_total",
			Help: "Sessions torn down",
		}),

		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clnet_connection_state",
			Help: "Current connection state (0 uninitialized .. 4 active)",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Datagrams,
			m.Dropped,
			m.Connectionless,
			m.ConnectAttempts,
			m.Timeouts,
			m.Disconnects,
			m.State,
		)
	}

	return m
}
