package spotsync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/swellmap/swellmap/internal/spot"
)

const instrumentationName = "github.com/swellmap/swellmap/internal/spotsync"

// Fetch kinds recorded on metrics and spans.
const (
	kindRegion   = "region"
	kindReport   = "report"
	kindForecast = "forecast"
)

// Metrics holds the engine's OpenTelemetry instruments.
type Metrics struct {
	fetchTotal    metric.Int64Counter
	fetchDuration metric.Float64Histogram
	requestTotal  metric.Int64Counter
	mergedTotal   metric.Int64Counter
	tracer        trace.Tracer
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	fetchTotal, err := meter.Int64Counter(
		"spotsync.fetch.total",
		metric.WithDescription("Upstream fetches by kind and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"spotsync.fetch.duration",
		metric.WithDescription("Duration of upstream fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"spotsync.request.total",
		metric.WithDescription("Region and report requests by kind and whether they were queued"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	mergedTotal, err := meter.Int64Counter(
		"spotsync.records.merged",
		metric.WithDescription("Upstream records merged into the store by fetch kind and payload shape"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		fetchTotal:    fetchTotal,
		fetchDuration: fetchDuration,
		requestTotal:  requestTotal,
		mergedTotal:   mergedTotal,
		tracer:        otel.Tracer(instrumentationName),
	}, nil
}

// startFetch opens a span for one upstream call. The returned func records
// the outcome and ends the span.
func (m *Metrics) startFetch(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if m == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "spotsync."+kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		set := metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		)
		m.fetchTotal.Add(ctx, 1, set)
		m.fetchDuration.Record(ctx, time.Since(start).Seconds(), set)
	}
}

func (m *Metrics) recordRequest(kind string, queued bool) {
	if m == nil {
		return
	}
	m.requestTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("queued", queued),
	))
}

// recordMerged counts merged records per payload shape. The report endpoint
// answers in either shape, so this shows which one is live.
func (m *Metrics) recordMerged(kind string, updates []spot.Update) {
	if m == nil || len(updates) == 0 {
		return
	}

	byShape := make(map[spot.Shape]int64, 2)
	for _, u := range updates {
		byShape[u.Shape]++
	}
	for shape, n := range byShape {
		name := string(shape)
		if name == "" {
			name = "unknown"
		}
		m.mergedTotal.Add(context.Background(), n, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("shape", name),
		))
	}
}
