package knowledge

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docchat/engine/infra/monitoring/metrics"
)

var (
	metricsOnce        sync.Once
	metricsMu          sync.Mutex
	metricsInitErr     error
	fileDurationHist   metric.Float64Histogram
	fileCounter        metric.Int64Counter
	chunkCounter       metric.Int64Counter
	chunksPerFileHist  metric.Int64Histogram
	batchCounter       metric.Int64Counter
	indexedCounter     metric.Int64Counter
	embedRetryCounter  metric.Int64Counter
	queryLatencyHist   metric.Float64Histogram
	retrievalEmptyCntr metric.Int64Counter
)

// RecordFile records one processed input file and the stage it ended in.
func RecordFile(ctx context.Context, outcome string, d time.Duration) {
	if err := ensureMetrics(); err != nil || fileCounter == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	fileCounter.Add(ctx, 1, attrs)
	fileDurationHist.Record(ctx, d.Seconds(), attrs)
}

// RecordFileChunks records how many chunks one file produced.
func RecordFileChunks(ctx context.Context, chunks int) {
	if err := ensureMetrics(); err != nil || chunkCounter == nil {
		return
	}
	chunksPerFileHist.Record(ctx, int64(chunks))
	if chunks > 0 {
		chunkCounter.Add(ctx, int64(chunks))
	}
}

// RecordBatch records a finished batch run by its final status.
func RecordBatch(ctx context.Context, status string) {
	if err := ensureMetrics(); err != nil || batchCounter == nil {
		return
	}
	batchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordIndexed(ctx context.Context, records int) {
	if records <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || indexedCounter == nil {
		return
	}
	indexedCounter.Add(ctx, int64(records))
}

func RecordEmbedRetry(ctx context.Context) {
	if err := ensureMetrics(); err != nil || embedRetryCounter == nil {
		return
	}
	embedRetryCounter.Add(ctx, 1)
}

func RecordQueryLatency(ctx context.Context, d time.Duration) {
	if err := ensureMetrics(); err != nil || queryLatencyHist == nil {
		return
	}
	queryLatencyHist.Record(ctx, d.Seconds())
}

func RecordRetrievalEmpty(ctx context.Context) {
	if err := ensureMetrics(); err != nil || retrievalEmptyCntr == nil {
		return
	}
	retrievalEmptyCntr.Add(ctx, 1)
}

// ResetMetricsForTesting drops cached instruments so the next call binds to
// the current global meter provider.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	fileDurationHist = nil
	fileCounter = nil
	chunkCounter = nil
	chunksPerFileHist = nil
	batchCounter = nil
	indexedCounter = nil
	embedRetryCounter = nil
	queryLatencyHist = nil
	retrievalEmptyCntr = nil
	metricsMu.Unlock()
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docchat.knowledge")
		if err := initIngestMetrics(meter); err != nil {
			metricsInitErr = err
			return
		}
		if err := initRetrievalMetrics(meter); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func initIngestMetrics(meter metric.Meter) error {
	var err error
	fileDurationHist, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("ingest", "file_duration_seconds"),
		metric.WithDescription("Time spent loading, normalizing and splitting one file"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.FileDurationBuckets...),
	)
	if err != nil {
		return err
	}
	fileCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("ingest", "files_total"),
		metric.WithDescription("Number of input files processed by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	chunkCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("ingest", "chunks_total"),
		metric.WithDescription("Number of chunks produced"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	chunksPerFileHist, err = meter.Int64Histogram(
		metrics.MetricNameWithSubsystem("ingest", "chunks_per_file"),
		metric.WithDescription("Distribution of chunks produced per file"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(metrics.ChunkCountBuckets...),
	)
	if err != nil {
		return err
	}
	batchCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("ingest", "batches_total"),
		metric.WithDescription("Number of batch runs by final status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	indexedCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("index", "records_total"),
		metric.WithDescription("Number of records written to the vector store"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	embedRetryCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("index", "embed_retries_total"),
		metric.WithDescription("Number of retried embedding or upsert calls"),
		metric.WithUnit("1"),
	)
	return err
}

func initRetrievalMetrics(meter metric.Meter) error {
	var err error
	queryLatencyHist, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("retrieval", "query_latency_seconds"),
		metric.WithDescription("Latency of retrieval queries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.QueryDurationBuckets...),
	)
	if err != nil {
		return err
	}
	retrievalEmptyCntr, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("retrieval", "empty_total"),
		metric.WithDescription("Number of retrieval queries that returned no chunks"),
		metric.WithUnit("1"),
	)
	return err
}
