package retriever

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compozy/docchat/engine/knowledge"
	"github.com/compozy/docchat/engine/knowledge/embedder"
	"github.com/compozy/docchat/engine/knowledge/vectordb"
	"github.com/compozy/docchat/pkg/config"
	"github.com/compozy/docchat/pkg/logger"
)

const defaultTopK = 4

// ErrEmptyQuery is returned when the query has no non-space characters.
var ErrEmptyQuery = errors.New("knowledge: query is required")

// Options tunes similarity search.
type Options struct {
	TopK      int
	MinScore  float64
	MaxTokens int
	Filters   map[string]string
	Retries   int
	Backoff   time.Duration
}

// OptionsFromConfig maps the retrieval section of the application config.
func OptionsFromConfig(cfg *config.RetrievalConfig) Options {
	return Options{
		TopK:      cfg.TopK,
		MinScore:  cfg.MinScore,
		MaxTokens: cfg.MaxTokens,
		Retries:   cfg.Retries,
		Backoff:   cfg.RetryBackoff,
	}
}

type Service struct {
	embedder  embedder.Embedder
	store     vectordb.Store
	estimator TokenEstimator
	options   Options
	tracer    trace.Tracer
}

func NewService(emb embedder.Embedder, store vectordb.Store, estimator TokenEstimator, opts Options) (*Service, error) {
	if emb == nil {
		return nil, errors.New("knowledge: retriever embedder is required")
	}
	if store == nil {
		return nil, errors.New("knowledge: retriever vector store is required")
	}
	if estimator == nil {
		estimator = runeEstimator{}
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}
	return &Service{
		embedder:  emb,
		store:     store,
		estimator: estimator,
		options:   opts,
		tracer:    otel.Tracer("docchat.knowledge.retriever"),
	}, nil
}

// Retrieve returns up to topK stored chunks most similar to query, best first.
// A non-positive topK uses the configured default. When MaxTokens is set the
// lowest ranked contexts are dropped until the total fits, keeping at least one.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (contexts []knowledge.RetrievedContext, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.options.TopK
	}
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "docchat.knowledge.retriever.retrieve", trace.WithAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("query_length", len(query)),
	))
	defer s.finishRetrieve(ctx, span, start, &contexts, &err)

	logger.FromContext(ctx).Debug("Retrieval started", "query_length", len(query), "top_k", topK)
	vector, err := s.embedQueryWithSpan(ctx, query)
	if err != nil {
		return nil, err
	}
	opts := vectordb.SearchOptions{
		TopK:     topK,
		MinScore: s.options.MinScore,
		Filters:  maps.Clone(s.options.Filters),
	}
	matches, err := s.searchMatches(ctx, vector, opts)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return s.buildContexts(ctx, matches), nil
}

func (s *Service) embedQueryWithSpan(ctx context.Context, query string) ([]float32, error) {
	spanCtx, span := s.tracer.Start(ctx, "docchat.knowledge.retriever.embed_query")
	defer span.End()
	var vector []float32
	backoff := retry.WithMaxRetries(uint64(s.options.Retries), retry.NewExponential(s.options.Backoff))
	err := retry.Do(spanCtx, backoff, func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = s.embedder.EmbedQuery(ctx, query)
		if embedErr == nil || errors.Is(embedErr, embedder.ErrDimensionMismatch) {
			return embedErr
		}
		return retry.RetryableError(embedErr)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}
	return vector, nil
}

func (s *Service) searchMatches(
	ctx context.Context,
	vector []float32,
	opts vectordb.SearchOptions,
) ([]vectordb.Match, error) {
	spanCtx, span := s.tracer.Start(ctx, "docchat.knowledge.retriever.vector_search", trace.WithAttributes(
		attribute.Int("top_k", opts.TopK),
		attribute.Float64("min_score", opts.MinScore),
	))
	defer span.End()
	matches, err := s.store.Search(spanCtx, vector, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("knowledge: vector search: %w", err)
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func (s *Service) buildContexts(ctx context.Context, matches []vectordb.Match) []knowledge.RetrievedContext {
	contexts := make([]knowledge.RetrievedContext, len(matches))
	tokenCounts := make([]int, len(matches))
	totalTokens := 0
	for i := range matches {
		tokens := s.estimator.EstimateTokens(ctx, matches[i].Text)
		totalTokens += tokens
		tokenCounts[i] = tokens
		source, index := provenance(matches[i].Metadata)
		contexts[i] = knowledge.RetrievedContext{
			ID:            matches[i].ID,
			Source:        source,
			Index:         index,
			Content:       matches[i].Text,
			Score:         matches[i].Score,
			TokenEstimate: tokens,
			Metadata:      maps.Clone(matches[i].Metadata),
		}
	}
	return trimContexts(s.options.MaxTokens, contexts, tokenCounts, totalTokens)
}

func trimContexts(
	maxTokens int,
	contexts []knowledge.RetrievedContext,
	tokenCounts []int,
	totalTokens int,
) []knowledge.RetrievedContext {
	if maxTokens <= 0 {
		return contexts
	}
	for totalTokens > maxTokens && len(contexts) > 1 {
		last := len(contexts) - 1
		totalTokens -= tokenCounts[last]
		contexts = contexts[:last]
		tokenCounts = tokenCounts[:last]
	}
	return contexts
}

// provenance reads source and chunk_index, which may come back as float64 from a JSON snapshot.
func provenance(metadata map[string]any) (string, int) {
	source, _ := metadata["source"].(string)
	switch v := metadata["chunk_index"].(type) {
	case int:
		return source, v
	case float64:
		return source, int(v)
	default:
		return source, 0
	}
}

func (s *Service) finishRetrieve(
	ctx context.Context,
	span trace.Span,
	start time.Time,
	contexts *[]knowledge.RetrievedContext,
	runErr *error,
) {
	duration := time.Since(start)
	knowledge.RecordQueryLatency(ctx, duration)
	log := logger.FromContext(ctx)
	if runErr != nil && *runErr != nil {
		err := *runErr
		log.Error("Retrieval failed", "error", err, "duration", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return
	}
	total := len(*contexts)
	if total == 0 {
		knowledge.RecordRetrievalEmpty(ctx)
	}
	log.Info("Retrieval finished", "results", total, "duration", duration)
	span.SetAttributes(attribute.Int("results", total))
	span.End()
}
