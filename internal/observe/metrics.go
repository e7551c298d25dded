// Package observe provides application-wide observability primitives for the
// quest-keeper sync layer: OpenTelemetry metrics and the SDK provider setup.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sync-layer metrics.
const meterName = "github.com/Raven-Six/mnehmos.quest-keeper.game-sub001"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SyncDuration tracks full sync execution latency. Use with attributes:
	//   attribute.String("scope", "world"|"party"), attribute.String("status", ...)
	SyncDuration metric.Float64Histogram

	// ToolCallDuration tracks individual remote tool call latency. Use with
	// attribute: attribute.String("tool", ...)
	ToolCallDuration metric.Float64Histogram

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// SyncRejected counts sync requests dropped by the scheduler guards.
	// Use with attribute: attribute.String("scope", ...)
	SyncRejected metric.Int64Counter

	// ConsistencyRepairs counts self-healed active-pointer violations.
	// Use with attribute: attribute.String("kind", ...)
	ConsistencyRepairs metric.Int64Counter

	// CacheRecords reports the record count per cache after each replacement.
	// Use with attribute: attribute.String("cache", ...)
	CacheRecords metric.Int64Gauge
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// request/response tool-call latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SyncDuration, err = m.Float64Histogram("questkeeper.sync.duration",
		metric.WithDescription("Latency of full sync executions by scope and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCallDuration, err = m.Float64Histogram("questkeeper.tool_call.duration",
		metric.WithDescription("Latency of individual remote tool calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("questkeeper.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.SyncRejected, err = m.Int64Counter("questkeeper.sync.rejected",
		metric.WithDescription("Sync requests dropped by mutual exclusion or rate limiting."),
	); err != nil {
		return nil, err
	}
	if met.ConsistencyRepairs, err = m.Int64Counter("questkeeper.consistency.repairs",
		metric.WithDescription("Self-healed active-pointer consistency violations by kind."),
	); err != nil {
		return nil, err
	}
	if met.CacheRecords, err = m.Int64Gauge("questkeeper.cache.records",
		metric.WithDescription("Record count per cache after the latest replacement."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSync records one sync execution with the standard attribute set.
func (m *Metrics) RecordSync(ctx context.Context, scope, status string, elapsed time.Duration) {
	m.SyncDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("status", status),
		),
	)
}

// RecordToolCall records one tool invocation with its latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, elapsed time.Duration) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
	m.ToolCallDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordSyncRejected records one dropped sync request.
func (m *Metrics) RecordSyncRejected(ctx context.Context, scope string) {
	m.SyncRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("scope", scope)))
}

// RecordRepair records one self-healed consistency violation.
func (m *Metrics) RecordRepair(ctx context.Context, kind string) {
	m.ConsistencyRepairs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordCacheSize reports the current record count of the named cache.
func (m *Metrics) RecordCacheSize(ctx context.Context, cacheName string, n int) {
	m.CacheRecords.Record(ctx, int64(n),
		metric.WithAttributes(attribute.String("cache", cacheName)))
}
