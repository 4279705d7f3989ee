// Package observe provides the bridge's observability primitives:
// OpenTelemetry metric instruments and the Prometheus-backed provider setup
// behind the /metrics endpoint.
//
// A package-level default [Metrics] instance is provided for convenience;
// tests should use [NewMetrics] with their own [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all bridge metrics.
const meterName = "github.com/avelow/voxbridge"

// Metrics holds all metric instruments. All fields are safe for concurrent
// use; the OTel types handle their own synchronization.
type Metrics struct {
	// FramesSent counts outbound media frames.
	FramesSent metric.Int64Counter

	// FramesReceived counts inbound media frames.
	FramesReceived metric.Int64Counter

	// ChunksDropped counts audio chunks shed by the recognition queue.
	ChunksDropped metric.Int64Counter

	// Transcripts counts finalized recognition results.
	Transcripts metric.Int64Counter

	// TTSDuration tracks synthesis latency. Use with
	// attribute.String("engine", ...).
	TTSDuration metric.Float64Histogram

	// PlaybackDuration tracks how long file playbacks hold the channel.
	PlaybackDuration metric.Float64Histogram

	// ActiveCalls tracks the number of live calls (0 or 1 today).
	ActiveCalls metric.Int64UpDownCounter

	// HTTPRequestDuration tracks control-surface request time. Use with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries (seconds) sized for a realtime
// audio path.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesSent, err = m.Int64Counter("voxbridge.media.frames_sent",
		metric.WithDescription("Outbound media frames."),
	); err != nil {
		return nil, err
	}
	if met.FramesReceived, err = m.Int64Counter("voxbridge.media.frames_received",
		metric.WithDescription("Inbound media frames."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("voxbridge.stt.chunks_dropped",
		metric.WithDescription("Audio chunks shed by the recognition queue."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("voxbridge.stt.transcripts",
		metric.WithDescription("Finalized recognition results."),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxbridge.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("voxbridge.media.playback_duration",
		metric.WithDescription("Wall time of file playbacks."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveCalls, err = m.Int64UpDownCounter("voxbridge.calls.active",
		metric.WithDescription("Live calls."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxbridge.http.request_duration",
		metric.WithDescription("Control-surface request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns the process-wide Metrics built on the global meter
// provider. Instruments on an uninitialized global provider are no-ops, so
// it is always safe to use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// The no-op provider cannot fail instrument creation; a real
			// provider failing here is a programming error.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
