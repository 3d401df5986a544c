// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs OpenTelemetry providers for the soup CLI.
//
// The soup packages only emit through the global otel providers and the
// default prometheus registry. Nothing is exported until Init installs a
// provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

var (
	// ErrNilContext is returned when Init is given a nil context.
	ErrNilContext = errors.New("telemetry: ctx must not be nil")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config selects exporters.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string

	// TraceExporter is "stdout" or "none" (or empty).
	TraceExporter string

	// MetricExporter is "stdout", "prometheus" or "none" (or empty).
	// "prometheus" registers otel instruments with the default prometheus
	// registry, next to the promauto counters, for MetricsHandler.
	MetricExporter string

	// Output receives stdout exporter records. Default: os.Stderr.
	Output io.Writer
}

// Init installs the configured global providers.
//
// Description:
//
//	Traces use a synchronous span processor so that short CLI runs
//	export every span before exit. Stdout metrics are flushed by the
//	shutdown function.
//
// Inputs:
//
//	ctx - Context for initialization. Must not be nil.
//	cfg - Exporter selection.
//
// Outputs:
//
//	shutdown - Flushes and stops every provider. Always non-nil on success.
//	error - ErrUnknownExporter for a bad exporter name.
//
// Example:
//
//	shutdown, err := telemetry.Init(ctx, telemetry.Config{
//	    ServiceName:   "soup",
//	    TraceExporter: telemetry.ExporterStdout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	switch cfg.TraceExporter {
	case "", ExporterNone:
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithSyncer(exporter),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	default:
		return nil, fmt.Errorf("%w: trace %q", ErrUnknownExporter, cfg.TraceExporter)
	}

	var reader metric.Reader
	switch cfg.MetricExporter {
	case "", ExporterNone:
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(out), stdoutmetric.WithPrettyPrint())
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)
	case ExporterPrometheus:
		exporter, err := promexporter.New()
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		_ = shutdown(ctx)
		return nil, fmt.Errorf("%w: metric %q", ErrUnknownExporter, cfg.MetricExporter)
	}
	if reader != nil {
		mp := metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	return shutdown, nil
}

// MetricsHandler serves the default prometheus registry: the store and
// config counters, plus the index instruments when Init was called with
// the prometheus metric exporter.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
