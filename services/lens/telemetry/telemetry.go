// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry tracer and meter providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/AleutianLens/services/lens/config"
)

// Exporter names accepted in TelemetryConfig.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

// Options holds the non-config inputs of Setup.
type Options struct {
	// Registerer receives the OTel prometheus exporter's collector.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// Writer receives stdout exporter output. Default: os.Stdout
	Writer io.Writer
}

// Setup installs global tracer and meter providers and the W3C trace
// context propagator.
//
// Description:
//
//	The trace exporter is chosen by cfg.TraceExporter: "otlp" ships spans
//	over gRPC to cfg.OTLPEndpoint, "stdout" prints them, "none" leaves the
//	global no-op provider in place. The metric exporter works the same way
//	with "prometheus" exposing OTel instruments on the process registry.
//
// Inputs:
//
//	ctx  - Context for exporter setup.
//	cfg  - Exporter selection.
//	opts - Registry and writer overrides.
//
// Outputs:
//
//	ShutdownFunc - Flushes and stops whatever was installed. Never nil.
//	error        - Non-nil if an exporter could not be created. Providers
//	               created before the failure are shut down.
func Setup(ctx context.Context, cfg config.TelemetryConfig, opts Options) (ShutdownFunc, error) {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	spanExporter, err := newSpanExporter(ctx, cfg, opts.Writer)
	if err != nil {
		return shutdown, err
	}
	if spanExporter != nil {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	reader, err := newMetricReader(cfg, opts)
	if err != nil {
		_ = shutdown(ctx)
		return func(context.Context) error { return nil }, err
	}
	if reader != nil {
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	slog.Info("telemetry configured",
		slog.String("service", cfg.ServiceName),
		slog.String("traces", cfg.TraceExporter),
		slog.String("metrics", cfg.MetricExporter),
	)
	return shutdown, nil
}

func newSpanExporter(ctx context.Context, cfg config.TelemetryConfig, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case ExporterOTLP:
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		return exp, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		return exp, nil
	case ExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.TraceExporter)
	}
}

func newMetricReader(cfg config.TelemetryConfig, opts Options) (sdkmetric.Reader, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		exp, err := otelprom.New(otelprom.WithRegisterer(opts.Registerer))
		if err != nil {
			return nil, fmt.Errorf("creating prometheus metric exporter: %w", err)
		}
		return exp, nil
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
		if err != nil {
			return nil, fmt.Errorf("creating stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case ExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown metric exporter %q", cfg.MetricExporter)
	}
}
