package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"regime-engine/internal/types"
)

// Recorder exports engine activity to Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	holds       prometheus.Counter
	vetoes      *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     prometheus.Histogram
	fused       *prometheus.GaugeVec
}

// New registers the engine metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_engine_decisions_total",
				Help: "Decisions emitted, by regime and action",
			},
			[]string{"regime", "action"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_engine_regime_transitions_total",
				Help: "Regime changes against the remembered regime",
			},
			[]string{"from", "to"},
		),
		holds: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regime_engine_hysteresis_holds_total",
				Help: "Evaluations where hysteresis kept the previous regime",
			},
		),
		vetoes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_engine_vetoes_total",
				Help: "Actions forced to HOLD, by filter",
			},
			[]string{"filter"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_engine_errors_total",
				Help: "Failed evaluations, by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "regime_engine_evaluation_duration_seconds",
				Help:    "Duration of one evaluation in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		fused: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regime_engine_fused_score",
				Help: "Last fused score per instrument and timeframe",
			},
			[]string{"instrument", "timeframe"},
		),
	}
}

const (
	VetoLiquidity = "liquidity"
	VetoCost      = "cost"
	VetoPanicBuy  = "panic_buy"
)

// RecordDecision counts d. Vetoes and hysteresis holds are read back from
// the decision's metrics bag.
func (r *Recorder) RecordDecision(d types.Decision) {
	r.decisions.WithLabelValues(string(d.Regime), string(d.Action)).Inc()
	r.fused.WithLabelValues(d.Instrument, string(d.Timeframe)).Set(d.FusedScore)
	if d.PriorRegime != "" && d.PriorRegime != d.Regime {
		r.transitions.WithLabelValues(string(d.PriorRegime), string(d.Regime)).Inc()
	}
	if d.Metrics["hysteresis_hold"] == 1 {
		r.holds.Inc()
	}
	if d.Metrics["liquidity_veto"] == 1 {
		r.vetoes.WithLabelValues(VetoLiquidity).Inc()
	}
	if d.Metrics["cost_filter"] == 1 {
		r.vetoes.WithLabelValues(VetoCost).Inc()
	}
	if d.Metrics["panic_buy_blocked"] == 1 {
		r.vetoes.WithLabelValues(VetoPanicBuy).Inc()
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(seconds float64) {
	r.latency.Observe(seconds)
}
