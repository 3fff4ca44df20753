// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics holds the Prometheus collectors of an export run.
package metrics

import (
	"time"

	"github.com/nlpodyssey/cnnexport/float16"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TensorsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnnexport_tensors_exported_total",
		Help: "Number of tensors written as artifacts",
	})

	ArtifactBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnnexport_artifact_bytes_total",
		Help: "Bytes written to artifacts",
	})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cnnexport_export_duration_seconds",
		Help:    "Time to fetch, reindex, downcast and write one tensor",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"tensor"})

	NumericSaturation = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cnnexport_numeric_saturation_total",
		Help: "Values binary16 cannot hold, by kind (overflow, underflow, nan, inf)",
	}, []string{"tensor", "kind"})

	ExportFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cnnexport_export_failures_total",
		Help: "Failed export tasks by error kind",
	}, []string{"kind"})
)

// RecordExport records a written artifact.
func RecordExport(tensor string, bytes int64, d time.Duration) {
	TensorsExported.Inc()
	ArtifactBytes.Add(float64(bytes))
	ExportDuration.WithLabelValues(tensor).Observe(d.Seconds())
}

// RecordSaturation records the special values found in a tensor.
func RecordSaturation(tensor string, s float16.Stats) {
	for kind, n := range map[string]int{
		"overflow":  s.Overflow,
		"underflow": s.Underflow,
		"nan":       s.NaN,
		"inf":       s.Inf,
	} {
		if n > 0 {
			NumericSaturation.WithLabelValues(tensor, kind).Add(float64(n))
		}
	}
}

// RecordFailure records a failed task.
func RecordFailure(kind string) {
	ExportFailures.WithLabelValues(kind).Inc()
}

// WriteTextfile writes all registered metrics to path in the text
// exposition format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
