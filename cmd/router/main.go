package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/amal/go-router/internal/codec"
	"github.com/danielpatrickdp/amal/go-router/internal/config"
	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/logging"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
	"github.com/danielpatrickdp/amal/go-router/internal/retrieval"
	"github.com/danielpatrickdp/amal/go-router/internal/router"
	"github.com/danielpatrickdp/amal/go-router/internal/store"
	"github.com/danielpatrickdp/amal/go-router/internal/templates"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("AMAL_CONFIG", ""), "path to router YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Routing log
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	// Connect to Python inference service
	codecClient, err := codec.NewCodecClient(cfg.CodecAddr)
	if err != nil {
		log.Fatalf("failed to connect to codec service at %s: %v", cfg.CodecAddr, err)
	}
	defer codecClient.Close()
	codecClient.SetTimeout(cfg.CodecTimeout)

	metrics := router.MustNewMetrics(prometheus.DefaultRegisterer)

	rt, err := buildRouter(cfg, codecClient, logging.NewDBRecorder(st.DB()), metrics)
	if err != nil {
		log.Fatalf("build router: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Println("Amal Router ready.")
	fmt.Printf("  DB: %s | Codec: %s | RAG: %s\n", cfg.DBPath, cfg.CodecAddr, ragLabel(cfg))
	fmt.Println("Type a message ('health' for status, 'quit' to exit):")

	runREPL(ctx, rt)
}

// #endregion main

// #region wiring

// buildRouter assembles the cascade, catalog and optional RAG path.
func buildRouter(cfg config.Config, codecClient *codec.CodecClient, rec router.Recorder, metrics *router.Metrics) (*router.Router, error) {
	mapping := intent.DefaultLabelMapping()
	if cfg.LabelMappingPath != "" {
		m, err := intent.LoadLabelMapping(cfg.LabelMappingPath)
		if err != nil {
			return nil, err
		}
		mapping = m
	}
	cascade, err := intent.NewCascade(codecClient, codecClient, mapping, cfg.Intent())
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	opts := []router.Option{router.WithRecorder(rec), router.WithMetrics(metrics)}
	if cfg.RAG.Enabled {
		searcher, err := buildSearcher(cfg, codecClient)
		if err != nil {
			return nil, err
		}
		invCfg := cfg.Invoker()
		invCfg.OnBackoff = metrics.ObserveBackoff
		inv, err := rag.NewInvoker(retrieval.NewRetriever(searcher, cfg.Retrieval()), codecClient, invCfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, router.WithRAG(inv))
	}

	return router.New(cascade, catalog, cfg.Router(), opts...)
}

func loadCatalog(path string) (*templates.Catalog, error) {
	if path == "" {
		return templates.Default()
	}
	return templates.Load(path)
}

// buildSearcher picks the vector-search backend: the inference service's own
// store, or a local chromem collection embedded through the service.
func buildSearcher(cfg config.Config, codecClient *codec.CodecClient) (retrieval.Searcher, error) {
	if cfg.RAG.Backend == config.BackendCodec {
		return codecClient, nil
	}
	embedder, err := retrieval.NewCachedEmbedder(codecClient, cfg.RAG.EmbedCacheSize)
	if err != nil {
		return nil, err
	}
	local, err := retrieval.NewChromemStore(cfg.Store(), embedder.EmbeddingFunc())
	if err != nil {
		return nil, err
	}
	if local.Count() == 0 {
		log.Printf("[RETRIEVAL] collection %s is empty; run ingest first", cfg.RAG.Collection)
	}
	return local, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	log.Printf("metrics on %s/metrics", addr)
	return srv
}

func ragLabel(cfg config.Config) string {
	if !cfg.RAG.Enabled {
		return "disabled"
	}
	return cfg.RAG.Backend
}

// #endregion wiring

// #region repl

// runREPL routes one message per stdin line until EOF, quit, or a signal.
func runREPL(ctx context.Context, rt *router.Router) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			return
		}
		if query == "health" {
			printJSON(rt.Health())
			continue
		}

		resp, err := rt.Process(ctx, query)
		if err != nil {
			log.Printf("route error: %v", err)
			continue
		}
		if resp.Failure != nil {
			log.Printf("[%s] degraded: %v", resp.RequestID, resp.Failure)
		}
		printJSON(resp.Reply())
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("encode: %v", err)
		return
	}
	fmt.Printf("\n%s\n\n", data)
}

// #endregion repl

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
