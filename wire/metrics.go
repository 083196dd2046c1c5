package wire

import "github.com/VictoriaMetrics/metrics"

// Process-wide framing counters, exposed via metrics.WritePrometheus from
// cmd/wiredoc's "serve" subcommand. VictoriaMetrics/metrics and
// rcrowley/go-metrics both ship as direct dependencies of the teacher repo
// but go unused there; this is where they earn their place - coarse,
// global counters here, per-Wire timing histograms in pauser.go.
var (
	metricDocumentsWritten  = metrics.NewCounter("wiredoc_documents_written_total")
	metricDocumentsSkipped  = metrics.NewCounter("wiredoc_documents_skipped_total")
	metricCASRetries        = metrics.NewCounter("wiredoc_cas_retries_total")
	metricTimeouts          = metrics.NewCounter("wiredoc_timeouts_total")
	metricEndOfStreamEvents = metrics.NewCounter("wiredoc_end_of_stream_total")
)
