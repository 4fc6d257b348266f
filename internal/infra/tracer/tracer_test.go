package tracer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	tp := otel.GetTracerProvider()
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", tp)
	}
}

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setup(config.TracerConfig{Enabled: true, Exporter: "stdout"}, &buf)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, span := StartSpan(context.Background(), SpanSearchQuery)
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), SpanSearchQuery) {
		t.Errorf("expected exported span %q in output:\n%s", SpanSearchQuery, buf.String())
	}
}

func TestSetupUnsupported(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func recordSpan(t *testing.T, fn func(span trace.Span)) sdktrace.ReadOnlySpan {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "test.span")
	fn(span)
	span.End()
	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	return ended[0]
}

func attrValue(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestRecordErrorTagsCode(t *testing.T) {
	err := domain.NewSubSystemError("search", "search.browser", domain.ErrSearchBlocked, "captcha page")
	span := recordSpan(t, func(s trace.Span) { RecordError(s, err) })

	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	if span.Status().Description != "captcha page" {
		t.Errorf("description = %q, want detail", span.Status().Description)
	}
	if got := attrValue(span, "error.code"); got != string(domain.CodeSearchBlocked) {
		t.Errorf("error.code = %q, want %s", got, domain.CodeSearchBlocked)
	}
}

func TestRecordErrorCanceledKeepsStatus(t *testing.T) {
	span := recordSpan(t, func(s trace.Span) { RecordError(s, context.Canceled) })

	if span.Status().Code == codes.Error {
		t.Error("cancelled span should not be marked as error")
	}
	if len(span.Events()) == 0 {
		t.Error("expected the cancellation to be recorded as an event")
	}
}

func TestSpanHelpers(t *testing.T) {
	span := recordSpan(t, func(s trace.Span) {
		s.SetAttributes(StringAttr("k", "v"), IntAttr("n", 1))
		SetOK(s)
	})
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if attrValue(span, "k") != "v" || attrValue(span, "n") != "1" {
		t.Errorf("unexpected attributes: %v", span.Attributes())
	}
}

func TestSetupMetricsDisabled(t *testing.T) {
	shutdown, err := SetupMetrics(context.Background(), config.MetricsConfig{})
	if err != nil {
		t.Fatalf("SetupMetrics: %v", err)
	}
	defer shutdown(context.Background())

	if _, ok := otel.GetMeterProvider().(metricnoop.MeterProvider); !ok {
		t.Errorf("expected noop meter provider, got %T", otel.GetMeterProvider())
	}
}

func TestSetupMetricsStdout(t *testing.T) {
	shutdown, err := SetupMetrics(context.Background(), config.MetricsConfig{Enabled: true, Exporter: "stdout", Interval: time.Hour})
	if err != nil {
		t.Fatalf("SetupMetrics: %v", err)
	}
	counter, err := Meter().Int64Counter("scoutchat.test")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 1)
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupMetricsUnsupported(t *testing.T) {
	if _, err := SetupMetrics(context.Background(), config.MetricsConfig{Enabled: true, Exporter: "prometheus", Interval: time.Second}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}
