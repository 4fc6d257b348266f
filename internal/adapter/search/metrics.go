package search

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

type searchMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newSearchMetrics() (*searchMetrics, error) {
	meter := tracer.Meter()
	requests, err := meter.Int64Counter("scoutchat.search.requests",
		metric.WithDescription("Searches by searcher and outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("scoutchat.search.duration",
		metric.WithDescription("Search latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &searchMetrics{requests: requests, duration: duration}, nil
}

// outcome labels err for metrics: "ok" or the lower-cased error code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(domain.ErrorCodeOf(err)))
}

func (m *searchMetrics) record(ctx context.Context, searcher, layout string, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("searcher", searcher),
		attribute.String("layout", layout),
		attribute.String("outcome", outcome(err)),
	)
	ctx = context.WithoutCancel(ctx)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
