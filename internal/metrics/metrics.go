// Package metrics exposes Prometheus collectors for scrape runs, snapshot files,
// merges and mailbox polling.
//
// Collectors live on a package registry rather than the global default so tests
// and embedding programs get a clean set. Handler serves the registry in the
// Prometheus exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "actionfeed"

var (
	registry = prometheus.NewRegistry()

	fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_total",
		Help:      "Page fetches by source and outcome",
	}, []string{"source", "outcome"})

	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Latency of page fetches",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})

	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Failed references by source and error kind",
	}, []string{"source", "kind"})

	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records extracted by source",
	}, []string{"source"})

	lastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run of a source finished",
	}, []string{"source"})

	snapshotFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_files_total",
		Help:      "Snapshot files written or read, by outcome",
	}, []string{"outcome"})

	mergeRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "merge_records",
		Help:      "Record counts of the last merge by stage (input, output)",
	}, []string{"stage"})

	pollTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_ticks_total",
		Help:      "Mailbox poll ticks by outcome",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(
		fetchTotal, fetchDuration, failuresTotal, recordsTotal, lastRun,
		snapshotFiles, mergeRecords, pollTicks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the registry holding every actionfeed collector.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt. outcome is "ok" or an error kind.
func ObserveFetch(source, outcome string, d time.Duration) {
	fetchTotal.WithLabelValues(source, outcome).Inc()
	fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// IncFailure counts one failed reference.
func IncFailure(source, kind string) {
	failuresTotal.WithLabelValues(source, kind).Inc()
}

// AddRecords counts extracted records.
func AddRecords(source string, n int) {
	recordsTotal.WithLabelValues(source).Add(float64(n))
}

// MarkRun sets the finish time of a run.
func MarkRun(source string, at time.Time) {
	lastRun.WithLabelValues(source).Set(float64(at.Unix()))
}

// IncSnapshotFile counts a snapshot file by outcome ("saved", "loaded", "failed").
func IncSnapshotFile(outcome string) {
	snapshotFiles.WithLabelValues(outcome).Inc()
}

// SetMerge records the sizes of the last merge.
func SetMerge(input, output int) {
	mergeRecords.WithLabelValues("input").Set(float64(input))
	mergeRecords.WithLabelValues("output").Set(float64(output))
}

// IncPollTick counts one mailbox tick by outcome ("ok", "empty", "error").
func IncPollTick(outcome string) {
	pollTicks.WithLabelValues(outcome).Inc()
}
