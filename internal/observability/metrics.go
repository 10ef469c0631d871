package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Roll origins used as the "origin" label on dicebot_rolls_total.
const (
	OriginTelnet = "telnet"
	OriginRPC    = "rpc"
	OriginScript = "script"
	OriginCLI    = "cli"
)

// Metrics holds the roll counters and histograms.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rolls       *prometheus.CounterVec
	parseErrors *prometheus.CounterVec
	diceRolled  prometheus.Counter
	duration    prometheus.Histogram
	gatherer    prometheus.Gatherer
}

// NewMetrics registers the dice metrics on reg.
//
// Precondition: reg must be non-nil and must not already hold these metrics.
// Postcondition: Returns a Metrics whose Handler serves reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		panic("observability: NewMetrics precondition violated: reg must be non-nil")
	}
	f := promauto.With(reg)
	return &Metrics{
		rolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dicebot_rolls_total",
			Help: "Total successful rolls by origin",
		}, []string{"origin"}),
		parseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dicebot_parse_errors_total",
			Help: "Total rejected formulas by error kind",
		}, []string{"kind"}),
		diceRolled: f.NewCounter(prometheus.CounterOpts{
			Name: "dicebot_dice_rolled_total",
			Help: "Total individual dice drawn",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dicebot_roll_duration_seconds",
			Help:    "Parse, evaluate and render duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		gatherer: reg,
	}
}

// RecordRoll counts one successful roll that drew dice individual dice.
func (m *Metrics) RecordRoll(origin string, dice int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rolls.WithLabelValues(origin).Inc()
	m.diceRolled.Add(float64(dice))
	m.duration.Observe(elapsed.Seconds())
}

// RecordParseError counts one rejected formula of the given error kind.
func (m *Metrics) RecordParseError(kind string) {
	if m == nil {
		return
	}
	m.parseErrors.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler exposing the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
