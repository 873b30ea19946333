package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the kiosk. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	ScansOpened     prometheus.Counter
	Captures        prometheus.Counter
	MatchOutcomes   *prometheus.CounterVec
	MatchDurationMs prometheus.Histogram
	Submissions     *prometheus.CounterVec
	CameraFailures  *prometheus.CounterVec
}

// New registers and returns kiosk collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vms_kiosk_camera_sessions_active",
			Help: "Current number of live camera sessions",
		}),
		ScansOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "vms_kiosk_scans_opened_total",
			Help: "Total number of face scan dialogs opened",
		}),
		Captures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vms_kiosk_captures_total",
			Help: "Total number of stills captured",
		}),
		MatchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vms_kiosk_match_outcomes_total",
			Help: "Returning-visitor match attempts by outcome",
		}, []string{"outcome"}),
		MatchDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vms_kiosk_match_duration_ms",
			Help:    "Duration of face match requests in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vms_kiosk_submissions_total",
			Help: "Visitor registration submissions by kind and outcome",
		}, []string{"kind", "outcome"}),
		CameraFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vms_kiosk_camera_failures_total",
			Help: "Camera acquisition failures by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) IncScanOpened() {
	if m == nil {
		return
	}
	m.ScansOpened.Inc()
}

func (m *Metrics) IncCapture() {
	if m == nil {
		return
	}
	m.Captures.Inc()
}

func (m *Metrics) IncCameraFailure(reason string) {
	if m == nil {
		return
	}
	m.CameraFailures.WithLabelValues(reason).Inc()
}

// ObserveMatch records a finished match attempt that began at start.
func (m *Metrics) ObserveMatch(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.MatchOutcomes.WithLabelValues(outcome).Inc()
	m.MatchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
}

func (m *Metrics) IncSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind, outcome).Inc()
}
