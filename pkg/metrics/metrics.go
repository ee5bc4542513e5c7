// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal tracks duplicate scans by status
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "duplicates",
			Name:      "scans_total",
			Help:      "Total number of duplicate scans by status",
		},
		[]string{"status"},
	)

	// ScanDuration tracks scan duration in seconds
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "duplicates",
			Name:      "scan_duration_seconds",
			Help:      "Duration of duplicate scans in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// ScannedProviders tracks the population size of the last scan
	ScannedProviders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "duplicates",
			Name:      "scanned_providers",
			Help:      "Number of active providers examined by the last scan",
		},
	)

	// DuplicateGroups tracks groups found by the last scan per match type
	DuplicateGroups = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "duplicates",
			Name:      "groups",
			Help:      "Number of duplicate groups found by the last scan",
		},
		[]string{"match_type"},
	)

	// MergesTotal tracks merges by mode and status
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "merges_total",
			Help:      "Total number of provider merges by mode and status",
		},
		[]string{"mode", "status"},
	)

	// MergeDuration tracks merge duration in seconds
	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "merge_duration_seconds",
			Help:      "Duration of provider merges in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	// MergeCompensations tracks merges rolled back by compensation
	MergeCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "compensations_total",
			Help:      "Total number of compensating rollbacks by outcome",
		},
		[]string{"status"},
	)

	// KafkaPublishTotal tracks event publishing
	KafkaPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "publish_total",
			Help:      "Total number of Kafka publish attempts",
		},
		[]string{"topic", "status"},
	)
)

func RecordScan(status string, durationSeconds float64) {
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(durationSeconds)
}

func RecordScanResult(scanned int, groupsByMatchType map[string]int) {
	ScannedProviders.Set(float64(scanned))
	for _, matchType := range []string{"email", "nif", "name"} {
		DuplicateGroups.WithLabelValues(matchType).Set(float64(groupsByMatchType[matchType]))
	}
}

func RecordMerge(mode, status string, durationSeconds float64) {
	MergesTotal.WithLabelValues(mode, status).Inc()
	MergeDuration.WithLabelValues(mode).Observe(durationSeconds)
}

func RecordCompensation(status string) {
	MergeCompensations.WithLabelValues(status).Inc()
}

func RecordKafkaPublish(topic, status string) {
	KafkaPublishTotal.WithLabelValues(topic, status).Inc()
}
