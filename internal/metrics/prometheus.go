// ABOUTME: Prometheus-backed Recorder implementation.
// ABOUTME: Connection state is a one-hot gauge vector so dashboards can sum by state label.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// connStates enumerates the gauge labels kept one-hot by ConnectionState.
var connStates = []string{"disconnected", "connecting", "connected", "reconnecting", "failed"}

// Prom records sync-layer diagnostics into a Prometheus registry.
type Prom struct {
	published    *prometheus.CounterVec
	deduplicated *prometheus.CounterVec
	faults       *prometheus.CounterVec
	connState    *prometheus.GaugeVec
	queueDepth   prometheus.Gauge
	replayed     prometheus.Counter
}

// NewProm creates a Recorder registered with reg.
func NewProm(reg prometheus.Registerer) *Prom {
	factory := promauto.With(reg)
	return &Prom{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coven_client_events_published_total",
			Help: "Events dispatched by the bus, by topic.",
		}, []string{"topic"}),
		deduplicated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coven_client_events_deduplicated_total",
			Help: "Duplicate events suppressed by the bus, by topic.",
		}, []string{"topic"}),
		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coven_client_subscriber_faults_total",
			Help: "Subscriber callbacks that panicked during dispatch, by topic.",
		}, []string{"topic"}),
		connState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coven_client_connection_state",
			Help: "Current connection state (one-hot by state label).",
		}, []string{"state"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coven_client_offline_queue_depth",
			Help: "Outbound actions currently queued while disconnected.",
		}),
		replayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "coven_client_actions_replayed_total",
			Help: "Queued actions replayed to the transport after reconnect.",
		}),
	}
}

func (p *Prom) EventPublished(topic string)    { p.published.WithLabelValues(topic).Inc() }
func (p *Prom) EventDeduplicated(topic string) { p.deduplicated.WithLabelValues(topic).Inc() }
func (p *Prom) SubscriberFault(topic string)   { p.faults.WithLabelValues(topic).Inc() }

func (p *Prom) ConnectionState(state string) {
	for _, s := range connStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		p.connState.WithLabelValues(s).Set(v)
	}
}

func (p *Prom) QueueDepth(n int)      { p.queueDepth.Set(float64(n)) }
func (p *Prom) ActionsReplayed(n int) { p.replayed.Add(float64(n)) }

var _ Recorder = (*Prom)(nil)
