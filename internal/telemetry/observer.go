// Package telemetry records plugin lifecycle metrics and traces.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	namespace = "appbase"

	// PluginsMetric is the fully qualified name of the per-state plugin gauge.
	PluginsMetric = namespace + "_plugins"
)

// Config holds observer dependencies. Nil fields fall back to no-op providers.
type Config struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	// RuntimeCollectors adds the Go runtime and process collectors to the registry.
	RuntimeCollectors bool
}

// Observer records hook executions and state transitions.
type Observer struct {
	registry     *prometheus.Registry
	transitions  *prometheus.CounterVec
	states       *prometheus.GaugeVec
	hookDuration *prometheus.HistogramVec

	tracer trace.Tracer
	hooks  metric.Int64Counter
}

// New builds an Observer with its own Prometheus registry.
func New(cfg Config) (*Observer, error) {
	if cfg.Tracer == nil {
		cfg.Tracer = tracenoop.NewTracerProvider().Tracer("appbase")
	}
	if cfg.Meter == nil {
		cfg.Meter = metricnoop.NewMeterProvider().Meter("appbase")
	}

	hooks, err := cfg.Meter.Int64Counter(
		"appbase.plugin.hooks",
		metric.WithDescription("Plugin lifecycle hook executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("create hook counter: %w", err)
	}

	o := &Observer{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_transitions_total",
			Help:      "Plugin state transitions by target state.",
		}, []string{"plugin", "state"}),
		states: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins",
			Help:      "Number of plugins currently in each state.",
		}, []string{"state"}),
		hookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_hook_duration_seconds",
			Help:      "Duration of plugin lifecycle hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin", "hook"}),
		tracer: cfg.Tracer,
		hooks:  hooks,
	}

	toRegister := []prometheus.Collector{o.transitions, o.states, o.hookDuration}
	if cfg.RuntimeCollectors {
		toRegister = append(toRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range toRegister {
		if err := o.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return o, nil
}

// Gatherer exposes the observer's registry for scraping.
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

// ObserveHook runs fn inside a span and records its duration and outcome.
func (o *Observer) ObserveHook(ctx context.Context, plugin, hook string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("plugin", plugin),
		attribute.String("hook", hook),
	}

	ctx, span := o.tracer.Start(ctx, "plugin."+hook, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	o.hookDuration.WithLabelValues(plugin, hook).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.hooks.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("result", result))...))

	return err
}

// Transition records a plugin moving from one state to another. An empty
// from marks a newly registered plugin.
func (o *Observer) Transition(plugin, from, to string) {
	o.transitions.WithLabelValues(plugin, to).Inc()
	if from != "" {
		o.states.WithLabelValues(from).Dec()
	}
	o.states.WithLabelValues(to).Inc()
}

// StateCounts reads the per-state plugin gauge back from the registry.
func (o *Observer) StateCounts() (map[string]int, error) {
	families, err := o.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	counts := make(map[string]int)
	for _, family := range families {
		if family.GetName() != PluginsMetric {
			continue
		}
		for _, m := range family.GetMetric() {
			counts[stateLabel(m)] = int(m.GetGauge().GetValue())
		}
	}
	return counts, nil
}

func stateLabel(m *dto.Metric) string {
	for _, label := range m.GetLabel() {
		if label.GetName() == "state" {
			return label.GetValue()
		}
	}
	return ""
}
