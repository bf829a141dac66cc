package retrieval

import (
	"context"

	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #region config
// RetrievalConfig holds the passage gate thresholds.
type RetrievalConfig struct {
	SimilarityThreshold float32 // min similarity a passage must reach
	MaxPassageLen       int     // max runes per passage, 0 = unlimited
}

// DefaultConfig returns the production passage gate.
func DefaultConfig() RetrievalConfig {
	return RetrievalConfig{
		SimilarityThreshold: 0,
		MaxPassageLen:       4000,
	}
}

// #endregion config

// #region searcher
// Searcher is a vector-search backend: the local chromem collection or the
// inference service's store.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, minSimilarity float32) ([]rag.Passage, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion searcher

// #region gate-result
// GateResult captures the outcome of one retrieval.
type GateResult struct {
	SearchCount int           // results from the backend
	KeptCount   int           // results passing the consistency check
	Passages    []rag.Passage // final passages, best first
	Reason      string        // human-readable explanation
}

// #endregion gate-result
