package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/amal/go-router/internal/codec"
	"github.com/danielpatrickdp/amal/go-router/internal/config"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
	"github.com/danielpatrickdp/amal/go-router/internal/retrieval"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("AMAL_CONFIG", ""), "path to router YAML config (optional)")
	input := flag.String("input", "", "JSON array of passages to ingest")
	batchSize := flag.Int("batch", 64, "passages per batch")
	workers := flag.Int("workers", 4, "concurrent batches")
	query := flag.String("query", "", "optional query to run against the collection after ingest")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest --input passages.json [--config router.yaml] [--batch N] [--workers N] [--query text]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read %s: %v", *input, err)
	}
	passages, skipped, err := parsePassages(data)
	if err != nil {
		log.Fatalf("parse %s: %v", *input, err)
	}

	fmt.Println("=== Passage Ingest ===")
	fmt.Printf("  Codec: %s | Store: %s | Collection: %s\n", cfg.CodecAddr, cfg.RAG.ChromemPath, cfg.RAG.Collection)
	fmt.Printf("  Passages: %d (%d skipped) | Batch: %d | Workers: %d\n", len(passages), skipped, *batchSize, *workers)

	codecClient, err := codec.NewCodecClient(cfg.CodecAddr)
	if err != nil {
		log.Fatalf("failed to connect to codec service at %s: %v", cfg.CodecAddr, err)
	}
	defer codecClient.Close()
	codecClient.SetTimeout(cfg.CodecTimeout)

	embedder, err := retrieval.NewCachedEmbedder(codecClient, cfg.RAG.EmbedCacheSize)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	store, err := retrieval.NewChromemStore(cfg.Store(), embedder.EmbeddingFunc())
	if err != nil {
		log.Fatalf("open collection: %v", err)
	}
	before := store.Count()

	ctx := context.Background()
	if err := ingest(ctx, store, passages, *batchSize, *workers); err != nil {
		log.Fatalf("ingest: %v", err)
	}

	fmt.Printf("\n=== Ingest Complete ===\n")
	fmt.Printf("  Collection size: %d -> %d\n", before, store.Count())
	fmt.Printf("  Cached embeddings: %d\n", embedder.Len())

	if *query != "" {
		results, err := store.Search(ctx, *query, cfg.RAG.TopK, cfg.RAG.MinSimilarity)
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		fmt.Printf("\n--- Top %d for %q ---\n", len(results), *query)
		for _, p := range results {
			fmt.Printf("  %.3f  %-12s  %s\n", p.Similarity, shortID(p.ID), preview(p.Text, 80))
		}
	}
}

// #endregion main

// #region ingest

// passageRecord is one entry of the input file.
type passageRecord struct {
	ID                string `json:"id"`
	Text              string `json:"text"`
	Category          string `json:"category"`
	GeographicContext string `json:"geographic_context"`
	Timeframe         string `json:"timeframe"`
}

// parsePassages decodes the input file. Entries with blank text are skipped;
// entries without an ID get a fresh one.
func parsePassages(data []byte) ([]rag.Passage, int, error) {
	var records []passageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, err
	}

	passages := make([]rag.Passage, 0, len(records))
	skipped := 0
	for _, r := range records {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			skipped++
			continue
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		meta := map[string]string{}
		for k, v := range map[string]string{
			rag.MetaCategory:          r.Category,
			rag.MetaGeographicContext: r.GeographicContext,
			rag.MetaTimeframe:         r.Timeframe,
		} {
			if v != "" {
				meta[k] = v
			}
		}
		passages = append(passages, rag.Passage{ID: id, Text: text, Metadata: meta})
	}
	return passages, skipped, nil
}

// batches splits passages into consecutive slices of at most size.
func batches(passages []rag.Passage, size int) [][]rag.Passage {
	if size < 1 {
		size = 1
	}
	var out [][]rag.Passage
	for start := 0; start < len(passages); start += size {
		end := min(start+size, len(passages))
		out = append(out, passages[start:end])
	}
	return out
}

// passageAdder is the part of ChromemStore ingest needs.
type passageAdder interface {
	Add(ctx context.Context, passages []rag.Passage, concurrency int) error
}

// ingest adds batches concurrently; the first failure cancels the rest.
func ingest(ctx context.Context, store passageAdder, passages []rag.Passage, batchSize, workers int) error {
	if workers < 1 {
		workers = 1
	}
	parts := batches(passages, batchSize)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, batch := range parts {
		g.Go(func() error {
			if err := store.Add(gctx, batch, 1); err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			n := done.Add(int64(len(batch)))
			fmt.Printf("  [%d/%d] embedded\n", n, len(passages))
			return nil
		})
	}
	return g.Wait()
}

// #endregion ingest

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func preview(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}

// #endregion helpers
