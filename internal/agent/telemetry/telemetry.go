package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Telemetry times pipeline stages. Every completion logs one line and, when
// a registerer was supplied, observes the stage histogram.
type Telemetry struct {
	logger    *zap.Logger
	durations *prometheus.HistogramVec
	now       func() time.Time
}

// New builds a Telemetry. reg may be nil, in which case nothing is exported.
func New(logger *zap.Logger, reg prometheus.Registerer) (*Telemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Telemetry{logger: logger, now: time.Now}
	if reg == nil {
		return t, nil
	}

	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_stage_duration_seconds",
		Help:    "Duration of research pipeline stages.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})
	if err := reg.Register(hist); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register stage histogram: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register stage histogram: %w", err)
		}
		hist = existing
	}
	t.durations = hist
	return t, nil
}

// Nop returns a Telemetry that discards everything.
func Nop() *Telemetry {
	t, _ := New(nil, nil)
	return t
}

// Stopwatch measures one stage started with Start.
type Stopwatch struct {
	t     *Telemetry
	label string
	start time.Time
}

func (t *Telemetry) Start(label string) Stopwatch {
	return Stopwatch{t: t, label: label, start: t.now()}
}

// Stop records the elapsed time. Call it once.
func (s Stopwatch) Stop() time.Duration {
	elapsed := s.t.now().Sub(s.start)
	s.t.record(s.label, elapsed)
	return elapsed
}

// Time runs fn and records its duration whether or not it fails.
func (t *Telemetry) Time(label string, fn func() error) error {
	sw := t.Start(label)
	defer sw.Stop()
	return fn()
}

// Timed is the value returning form of Time.
func Timed[T any](t *Telemetry, label string, fn func() (T, error)) (T, error) {
	sw := t.Start(label)
	defer sw.Stop()
	return fn()
}

func (t *Telemetry) record(label string, elapsed time.Duration) {
	t.logger.Info(fmt.Sprintf("%s completed in %.2f seconds", label, elapsed.Seconds()))
	if t.durations != nil {
		t.durations.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}
