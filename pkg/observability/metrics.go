package observability

import (
	"context"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	StepsApplied   prometheus.Counter
	StepErrors     prometheus.Counter
	Runs           *prometheus.CounterVec
	ConfigInstalls *prometheus.CounterVec
	ActivePattern  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StepsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pacer_steps_applied_total",
			Help: "Total number of steps handed to the actuator",
		}),
		StepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pacer_step_errors_total",
			Help: "Total number of steps the actuator failed to apply",
		}),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacer_runs_total",
				Help: "Finished pattern runs by outcome",
			},
			[]string{"outcome"},
		),
		ConfigInstalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacer_config_installs_total",
				Help: "Pattern sets installed by source",
			},
			[]string{"source"},
		),
		ActivePattern: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pacer_active_pattern",
				Help: "1 while a run of the pattern is in progress",
			},
			[]string{"pattern"},
		),
	}

	for _, c := range []prometheus.Collector{m.StepsApplied, m.StepErrors, m.Runs, m.ConfigInstalls, m.ActivePattern} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			m.ActivePattern.WithLabelValues(e.Pattern).Set(1)
		},
		OnStepApplied: func(_ context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				m.StepErrors.Inc()
				return
			}
			m.StepsApplied.Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.ActivePattern.WithLabelValues(e.Pattern).Set(0)
			m.Runs.WithLabelValues(string(e.State)).Inc()
		},
		OnConfigInstalled: func(_ context.Context, e *domain.ConfigEvent) {
			m.ConfigInstalls.WithLabelValues(e.Source).Inc()
		},
	}
}
