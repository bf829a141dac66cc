package retrieval

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #region retriever
// Retriever runs a Searcher and filters its results. It implements rag.Retriever.
type Retriever struct {
	searcher Searcher
	config   RetrievalConfig
}

// NewRetriever creates a Retriever over the given backend.
func NewRetriever(searcher Searcher, config RetrievalConfig) *Retriever {
	return &Retriever{searcher: searcher, config: config}
}

// #endregion retriever

// #region retrieve
// Retrieve searches for the top k passages and drops any that fail the
// consistency check.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (GateResult, error) {
	result := GateResult{}

	found, err := r.searcher.Search(ctx, query, k, r.config.SimilarityThreshold)
	if err != nil {
		return result, fmt.Errorf("retrieval search: %w", err)
	}
	result.SearchCount = len(found)
	if result.SearchCount == 0 {
		result.Reason = "search: no results"
		return result, nil
	}

	result.Passages = r.consistencyCheck(found)
	result.KeptCount = len(result.Passages)
	if result.KeptCount == 0 {
		result.Reason = "consistency: all results rejected"
	} else {
		result.Reason = fmt.Sprintf("retrieved %d passages (search=%d, kept=%d)",
			result.KeptCount, result.SearchCount, result.KeptCount)
	}
	return result, nil
}

// Search implements rag.Retriever.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]rag.Passage, error) {
	res, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	log.Printf("[RETRIEVAL] %s", res.Reason)
	return res.Passages, nil
}

// #endregion retrieve

// #region consistency-check
// consistencyCheck keeps passages that:
//   - have non-empty text
//   - fit within MaxPassageLen
//   - reach SimilarityThreshold
//   - have not been seen before (by ID)
func (r *Retriever) consistencyCheck(found []rag.Passage) []rag.Passage {
	seen := make(map[string]bool)
	var valid []rag.Passage

	for _, p := range found {
		if p.Text == "" {
			continue
		}
		if r.config.MaxPassageLen > 0 && utf8.RuneCountInString(p.Text) > r.config.MaxPassageLen {
			continue
		}
		if p.Similarity < r.config.SimilarityThreshold {
			continue
		}
		if p.ID != "" {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
		}
		valid = append(valid, p)
	}

	return valid
}

// #endregion consistency-check
