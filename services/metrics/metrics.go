package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/application"
)

const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultInFlight = "in_flight"
	ResultError    = "error"
)

// Metrics holds the wizard service collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram
	sessions       prometheus.Gauge
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_transitions_total",
				Help:      "Total number of wizard operations, by action and result",
			},
			[]string{"action", "result"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "application_submissions_total",
				Help:      "Total number of ID applications sent to the student API, by result",
			},
			[]string{"result"},
		),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "application_submission_duration_seconds",
			Help:      "Duration of ID application submissions in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wizard_sessions_active",
			Help:      "Number of wizard sessions held in memory",
		}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.submissions,
		m.submitDuration,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry every collector is registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTransition counts a wizard operation, eg: "advance", "set_field".
func (m *Metrics) ObserveTransition(action string, err error) {
	m.transitions.WithLabelValues(action, Result(err)).Inc()
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// Instrument wraps a Submitter to time and count its submissions.
func (m *Metrics) Instrument(s application.Submitter) application.Submitter {
	return &instrumentedSubmitter{next: s, m: m}
}

type instrumentedSubmitter struct {
	next application.Submitter
	m    *Metrics
}

func (s *instrumentedSubmitter) SubmitApplication(ctx context.Context, p application.Payload) (application.Receipt, error) {
	start := time.Now()
	receipt, err := s.next.SubmitApplication(ctx, p)
	s.m.submitDuration.Observe(time.Since(start).Seconds())
	s.m.submissions.WithLabelValues(Result(err)).Inc()
	return receipt, err
}

// Result labels the outcome of an operation.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	if errors.Cause(err) == application.ErrSubmitInFlight {
		return ResultInFlight
	}
	if _, ok := errors.Cause(err).(*core.ValidationError); ok {
		return ResultInvalid
	}
	return ResultError
}
