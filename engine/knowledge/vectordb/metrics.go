package vectordb

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/docchat/engine/infra/monitoring/metrics"
)

const labelUnknownValue = "unknown"

var (
	vectorMetricsOnce   sync.Once
	vectorMetricsErr    error
	vectorSearchLatency metric.Float64Histogram
	vectorResultsCount  metric.Float64Histogram
	vectorTopScore      metric.Float64Histogram
	vectorErrorsTotal   metric.Int64Counter
)

// ensureVectorMetrics lazily initializes metric instruments used by vector stores.
func ensureVectorMetrics() error {
	vectorMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docchat.knowledge.vector")
		if err := initVectorHistograms(meter); err != nil {
			vectorMetricsErr = err
			return
		}
		vectorErrorsTotal, vectorMetricsErr = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("vectordb", "store_errors_total"),
			metric.WithDescription("Vector store operation errors"),
		)
	})
	return vectorMetricsErr
}

func initVectorHistograms(meter metric.Meter) error {
	var err error
	vectorSearchLatency, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "similarity_search_seconds"),
		metric.WithDescription("Vector similarity search latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return err
	}
	vectorResultsCount, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "similarity_results_per_search"),
		metric.WithDescription("Number of results returned per search"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return err
	}
	vectorTopScore, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "similarity_score_max"),
		metric.WithDescription("Cosine similarity of the best match"),
		metric.WithExplicitBucketBoundaries(-1, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
	)
	return err
}

// recordVectorSearch captures latency, result counts and the best score of a query.
func recordVectorSearch(ctx context.Context, provider string, topK int, duration time.Duration, matches []Match) {
	if err := ensureVectorMetrics(); err != nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("provider", sanitizeLabel(provider, labelUnknownValue)),
		attribute.Int("top_k", topK),
	)
	vectorSearchLatency.Record(ctx, duration.Seconds(), labels)
	vectorResultsCount.Record(ctx, float64(len(matches)), labels)
	if len(matches) > 0 {
		vectorTopScore.Record(ctx, matches[0].Score, labels)
	}
}

func recordVectorError(ctx context.Context, operation string, errorType string) {
	if err := ensureVectorMetrics(); err != nil || vectorErrorsTotal == nil {
		return
	}
	vectorErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", sanitizeLabel(operation, labelUnknownValue)),
		attribute.String("error_type", sanitizeLabel(errorType, labelUnknownValue)),
	))
}

func sanitizeLabel(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return strings.ToLower(trimmed)
}
