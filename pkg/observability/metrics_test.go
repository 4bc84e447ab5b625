package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	hooks := m.Hooks()

	hooks.OnRunStart(ctx, &domain.RunEvent{Pattern: "wave", State: domain.RunRunning})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActivePattern.WithLabelValues("wave")))

	hooks.OnStepApplied(ctx, &domain.StepEvent{})
	hooks.OnStepApplied(ctx, &domain.StepEvent{})
	hooks.OnStepApplied(ctx, &domain.StepEvent{Err: errors.New("unplugged")})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Pattern: "wave", State: domain.RunCompleted})
	hooks.OnConfigInstalled(ctx, &domain.ConfigEvent{Source: "reload"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepsApplied))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigInstalls.WithLabelValues("reload")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActivePattern.WithLabelValues("wave")))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}
