package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianLens/services/lens/config"
)

func TestSetup_NoneInstallsNothing(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		ServiceName:    "test",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterNone,
	}, Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_StdoutAndPrometheus(t *testing.T) {
	var out bytes.Buffer
	reg := prometheus.NewRegistry()
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		ServiceName:    "test",
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterPrometheus,
	}, Options{Registerer: reg, Writer: &out})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	counter, err := otel.Meter("test").Int64Counter("lens.test.events")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	span.End()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("prometheus registry has no metric families")
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"Name": "unit"`)) {
		t.Errorf("stdout exporter did not print the span:\n%s", out.String())
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{
		ServiceName:   "test",
		TraceExporter: "zipkin",
	}, Options{Registerer: prometheus.NewRegistry()})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}

	_, err = Setup(context.Background(), config.TelemetryConfig{
		ServiceName:    "test",
		MetricExporter: "statsd",
	}, Options{Registerer: prometheus.NewRegistry()})
	if err == nil {
		t.Fatal("expected error for unknown metric exporter")
	}
}
