// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// Query paths reported in the operation counter's "path" label.
const (
	pathIDIndex       = "id_index"
	pathTypeIndex     = "type_index"
	pathRelationIndex = "relation_index"
	pathGroupIndex    = "group_index"
	pathCustomIndex   = "custom_index"
	pathScan          = "scan"
	pathNone          = "none"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soup_store_operations_total",
		Help: "Store operations by element type, operation and the index path that served them",
	}, []string{"type", "op", "path"})

	storeInsertRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soup_store_insert_rejections_total",
		Help: "Inserts rejected by element type and reason",
	}, []string{"type", "reason"})

	storeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soup_store_build_duration_seconds",
		Help:    "Duration of store construction including index build",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var storeTracer = otel.Tracer("soup.store")

func countOp(typ, op, path string) {
	storeOperations.WithLabelValues(typ, op, path).Inc()
}
