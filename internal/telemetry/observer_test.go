package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveHookRecordsDuration(t *testing.T) {
	t.Parallel()

	o, err := New(Config{})
	require.NoError(t, err)

	called := false
	err = o.ObserveHook(context.Background(), "net", "startup", func(ctx context.Context) error {
		called = true
		require.NotNil(t, ctx)
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, 1, testutil.CollectAndCount(o.hookDuration, "appbase_plugin_hook_duration_seconds"))
}

func TestObserveHookReturnsHookError(t *testing.T) {
	t.Parallel()

	o, err := New(Config{})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = o.ObserveHook(context.Background(), "net", "initialize", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestTransitionMovesGauge(t *testing.T) {
	t.Parallel()

	o, err := New(Config{})
	require.NoError(t, err)

	o.Transition("net", "", "registered")
	o.Transition("config", "", "registered")
	o.Transition("net", "registered", "initialized")

	require.InDelta(t, 1, testutil.ToFloat64(o.states.WithLabelValues("registered")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(o.states.WithLabelValues("initialized")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(o.transitions.WithLabelValues("net", "initialized")), 0)

	counts, err := o.StateCounts()
	require.NoError(t, err)
	require.Equal(t, map[string]int{"registered": 1, "initialized": 1}, counts)
}

func TestGathererIncludesRuntimeCollectors(t *testing.T) {
	t.Parallel()

	o, err := New(Config{RuntimeCollectors: true})
	require.NoError(t, err)

	families, err := o.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["go_goroutines"])
}
