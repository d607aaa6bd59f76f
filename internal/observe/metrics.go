// Package observe provides lexibot's observability primitives: OpenTelemetry
// metrics exported to Prometheus, tracing helpers, and HTTP middleware.
//
// Tests should build their own [Metrics] with [NewMetrics] and an
// sdkmetric.ManualReader instead of using [DefaultMetrics], so that recorded
// values do not leak between tests.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lexibot metrics.
const meterName = "github.com/MrWong99/lexibot"

// Playback outcomes recorded by [Metrics.RecordPlayback].
const (
	PlaybackCompleted = "completed"
	PlaybackSkipped   = "skipped"
	PlaybackStopped   = "stopped"
	PlaybackFailed    = "failed"
)

// Metrics holds the OpenTelemetry instruments used by lexibot. All fields are
// safe for concurrent use.
type Metrics struct {
	// LookupDuration tracks dictionary lookup latency, labelled by provider
	// and status.
	LookupDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech latency, labelled by provider
	// and status.
	SynthesisDuration metric.Float64Histogram

	// Requests counts accepted definition requests. Attributes:
	//   attribute.Bool("tts", ...), attribute.Bool("reverse", ...)
	Requests metric.Int64Counter

	// Playbacks counts finished voice playbacks by outcome.
	Playbacks metric.Int64Counter

	// ProviderErrors counts collaborator failures by provider and kind
	// ("dictionary", "tts", "transcode", "translate", "voice").
	ProviderErrors metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes by provider
	// and target state.
	BreakerTransitions metric.Int64Counter

	// QueueDepth is the total number of backlog entries across all text
	// channels.
	QueueDepth metric.Int64UpDownCounter

	// VoiceReservations is the sum of all voice occupancy counts.
	VoiceReservations metric.Int64UpDownCounter

	// VoiceConnections is the number of joined voice channels.
	VoiceConnections metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time by route and
	// status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, sized for remote API
// round-trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LookupDuration, err = m.Float64Histogram("lexibot.dictionary.lookup.duration",
		metric.WithDescription("Latency of dictionary lookups."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("lexibot.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Requests, err = m.Int64Counter("lexibot.requests",
		metric.WithDescription("Definition requests accepted into a channel queue."),
	); err != nil {
		return nil, err
	}
	if met.Playbacks, err = m.Int64Counter("lexibot.playbacks",
		metric.WithDescription("Voice playbacks by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lexibot.provider.errors",
		metric.WithDescription("Collaborator failures by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("lexibot.circuit_breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by provider and state."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("lexibot.queue.depth",
		metric.WithDescription("Pending definition requests across all channels."),
	); err != nil {
		return nil, err
	}
	if met.VoiceReservations, err = m.Int64UpDownCounter("lexibot.voice.reservations",
		metric.WithDescription("Text-to-speech requests holding a voice channel reservation."),
	); err != nil {
		return nil, err
	}
	if met.VoiceConnections, err = m.Int64UpDownCounter("lexibot.voice.connections",
		metric.WithDescription("Joined voice channels."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lexibot.http.request.duration",
		metric.WithDescription("HTTP request latency by route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, created on
// first use from [otel.GetMeterProvider]. Call it after [InitProvider] so the
// instruments bind to the Prometheus exporter.
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

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordLookup records one dictionary lookup.
func (m *Metrics) RecordLookup(ctx context.Context, provider string, d time.Duration, err error) {
	m.LookupDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status(err)),
	))
	if err != nil {
		m.RecordProviderError(ctx, provider, "dictionary")
	}
}

// RecordSynthesis records one text-to-speech call.
func (m *Metrics) RecordSynthesis(ctx context.Context, provider string, d time.Duration, err error) {
	m.SynthesisDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status(err)),
	))
	if err != nil {
		m.RecordProviderError(ctx, provider, "tts")
	}
}

// RecordRequest counts an accepted definition request.
func (m *Metrics) RecordRequest(ctx context.Context, tts, reverse bool) {
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("tts", tts),
		attribute.Bool("reverse", reverse),
	))
}

// RecordPlayback counts a finished playback. outcome is one of the Playback*
// constants.
func (m *Metrics) RecordPlayback(ctx context.Context, outcome string) {
	m.Playbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProviderError counts a collaborator failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, provider, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("state", to),
	))
}
