// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "soup.index"

var tracer = otel.Tracer(instrumentationName)

// Operation names recorded on spans and metrics.
const (
	opBuild   = "Build"
	opAdd     = "Add"
	opRemove  = "Remove"
	opReindex = "Reindex"
)

// instruments are the otel metrics one Set reports into.
type instruments struct {
	latency  metric.Float64Histogram
	total    metric.Int64Counter
	failures metric.Int64Counter
	size     metric.Int64Gauge
}

var (
	globalInstruments     *instruments
	globalInstrumentsOnce sync.Once
)

// defaultInstruments are built on first use from the global meter
// provider, so a provider installed after init still receives them.
func defaultInstruments() *instruments {
	globalInstrumentsOnce.Do(func() {
		globalInstruments = newInstruments(otel.GetMeterProvider())
	})
	return globalInstruments
}

// newInstruments returns nil when the provider rejects any instrument;
// a nil *instruments records nothing.
func newInstruments(mp metric.MeterProvider) *instruments {
	m := mp.Meter(instrumentationName)
	var inst instruments
	var errs [4]error

	inst.latency, errs[0] = m.Float64Histogram("index_operation_duration_seconds",
		metric.WithDescription("Duration of index set operations"),
		metric.WithUnit("s"))
	inst.total, errs[1] = m.Int64Counter("index_operation_total",
		metric.WithDescription("Index set operations by name and outcome"))
	inst.failures, errs[2] = m.Int64Counter("index_operation_failures_total",
		metric.WithDescription("Rejected index set operations by reason"))
	inst.size, errs[3] = m.Int64Gauge("index_size",
		metric.WithDescription("Elements held by the index set"))

	if errors.Join(errs[:]...) != nil {
		return nil
	}
	return &inst
}

// observe records one finished operation on a set now holding size
// elements.
func (i *instruments) observe(ctx context.Context, op string, start time.Time, size int, err error) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("success", err == nil),
	)
	i.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	i.total.Add(ctx, 1, attrs)
	i.size.Record(ctx, int64(size))
	if err != nil {
		i.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("reason", failureReason(err)),
		))
	}
}

func failureReason(err error) string {
	var batch *BatchError
	switch {
	case errors.As(err, &batch):
		return "batch"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrNilElement):
		return "nil_element"
	case errors.Is(err, ErrNotIndexed):
		return "not_indexed"
	}
	return "other"
}

// startSpan opens a span for an operation over n input elements.
func startSpan(ctx context.Context, op string, n int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "IndexSet."+op, trace.WithAttributes(
		attribute.String("index.operation", op),
		attribute.Int("index.input_count", n),
	))
}

// endSpan closes span with the set's size and err, if any.
func endSpan(span trace.Span, size int, err error) {
	span.SetAttributes(attribute.Int("index.size", size))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
	}
	span.End()
}
