package retrieval

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #region store-config

// StoreConfig locates the local passage collection.
type StoreConfig struct {
	PersistPath string // empty = in-memory
	Collection  string
	Compress    bool
}

// DefaultStoreConfig returns the research collection settings.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		PersistPath: "rag_store",
		Collection:  "improved_drug_research",
	}
}

// #endregion store-config

// #region store

// ChromemStore is an in-process vector index of knowledge-base passages.
type ChromemStore struct {
	db   *chromem.DB
	coll *chromem.Collection
}

// NewChromemStore opens (or creates) the collection. embed must return
// normalized vectors.
func NewChromemStore(cfg StoreConfig, embed chromem.EmbeddingFunc) (*ChromemStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("chromem store: collection name is empty")
	}

	var db *chromem.DB
	if cfg.PersistPath == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", cfg.PersistPath, err)
		}
	}

	coll, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", cfg.Collection, err)
	}
	return &ChromemStore{db: db, coll: coll}, nil
}

// Count returns the number of stored passages.
func (s *ChromemStore) Count() int {
	return s.coll.Count()
}

// #endregion store

// #region add

// Add embeds and stores passages. Passages with an existing ID are replaced.
func (s *ChromemStore) Add(ctx context.Context, passages []rag.Passage, concurrency int) error {
	if len(passages) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		docs[i] = chromem.Document{ID: p.ID, Metadata: p.Metadata, Content: p.Text}
	}
	if err := s.coll.AddDocuments(ctx, docs, concurrency); err != nil {
		return fmt.Errorf("add passages: %w", err)
	}
	return nil
}

// #endregion add

// #region search

// Search implements Searcher. k is clamped to the collection size.
func (s *ChromemStore) Search(ctx context.Context, query string, topK int, minSimilarity float32) ([]rag.Passage, error) {
	n := topK
	if count := s.coll.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := s.coll.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	passages := make([]rag.Passage, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		passages = append(passages, rag.Passage{
			ID:         r.ID,
			Text:       r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return passages, nil
}

// #endregion search
