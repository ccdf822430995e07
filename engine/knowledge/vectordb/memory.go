package vectordb

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

const defaultTopK = 5

// memoryStore keeps records in a map and answers queries by brute-force cosine similarity.
type memoryStore struct {
	mu        sync.RWMutex
	provider  Provider
	dimension int
	maxTopK   int
	records   map[string]Record
}

func newMemoryStore(cfg *Config) *memoryStore {
	return &memoryStore{
		provider:  ProviderMemory,
		dimension: cfg.Dimension,
		maxTopK:   cfg.MaxTopK,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(records)
}

func (s *memoryStore) upsertLocked(records []Record) error {
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			return fmt.Errorf("%s: record %d has no id", s.provider, i)
		}
		if len(records[i].Embedding) != s.dimension {
			return fmt.Errorf(
				"%s: record %q: %w (got %d want %d)",
				s.provider, records[i].ID, ErrDimensionMismatch, len(records[i].Embedding), s.dimension,
			)
		}
	}
	for _, rec := range records {
		s.records[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: slices.Clone(rec.Embedding),
			Metadata:  maps.Clone(rec.Metadata),
		}
	}
	return nil
}

// Search ranks by score descending and breaks ties by ID so results are stable.
func (s *memoryStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	start := time.Now()
	if len(query) != s.dimension {
		recordVectorError(ctx, "search", "dimension_mismatch")
		return nil, fmt.Errorf(
			"%s: query: %w (got %d want %d)", s.provider, ErrDimensionMismatch, len(query), s.dimension,
		)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if s.maxTopK > 0 && topK > s.maxTopK {
		topK = s.maxTopK
	}
	s.mu.RLock()
	candidates := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if !metadataMatches(rec.Metadata, opts.Filters) {
			continue
		}
		score := cosineSimilarity(rec.Embedding, query)
		if score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Match{
			ID:       rec.ID,
			Score:    score,
			Text:     rec.Text,
			Metadata: maps.Clone(rec.Metadata),
		})
	}
	s.mu.RUnlock()
	slices.SortFunc(candidates, func(a, b Match) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	recordVectorSearch(ctx, string(s.provider), topK, time.Since(start), candidates)
	return candidates, nil
}

func (s *memoryStore) Delete(_ context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(filter)
	return nil
}

// deleteLocked reports whether any record was removed.
func (s *memoryStore) deleteLocked(filter Filter) bool {
	before := len(s.records)
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			delete(s.records, id)
		}
		return len(s.records) != before
	}
	if len(filter.Metadata) == 0 {
		return false
	}
	maps.DeleteFunc(s.records, func(_ string, rec Record) bool {
		return metadataMatches(rec.Metadata, filter.Metadata)
	})
	return len(s.records) != before
}

func (s *memoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// cosineSimilarity returns 0 when either vector has zero length.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func metadataMatches(metadata map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		value, ok := metadata[key]
		if !ok || fmt.Sprint(value) != want {
			return false
		}
	}
	return true
}
