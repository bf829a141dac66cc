package config

// #region imports
import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
	"github.com/danielpatrickdp/amal/go-router/internal/retrieval"
	"github.com/danielpatrickdp/amal/go-router/internal/router"
)

// #endregion

// #region defaults

// Default returns the production configuration.
func Default() Config {
	policy := rag.DefaultPolicy()
	gate := retrieval.DefaultConfig()
	store := retrieval.DefaultStoreConfig()
	return Config{
		CodecAddr:    "localhost:50051",
		CodecTimeout: 30 * time.Second,
		DBPath:       "amal_router.db",
		CrisisLine:   router.DefaultConfig().CrisisLine,
		Classifier:   ClassifierConfig{OODThreshold: intent.DefaultConfig().OODThreshold},
		RAG: RAGConfig{
			Enabled:        true,
			Backend:        BackendCodec,
			ChromemPath:    store.PersistPath,
			Collection:     store.Collection,
			TopK:           rag.DefaultInvokerConfig().TopK,
			MinSimilarity:  gate.SimilarityThreshold,
			MaxPassageLen:  gate.MaxPassageLen,
			MaxAttempts:    policy.MaxAttempts,
			BaseDelay:      policy.BaseDelay,
			MaxDelay:       policy.MaxDelay,
			Burst:          1,
			EmbedCacheSize: 10000,
		},
	}
}

// #endregion defaults

// #region load

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then AMAL_* environment overrides. The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: read config %s: %v", faults.ErrConfiguration, path, err)
		}
		// Fields absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse config %s: %v", faults.ErrConfiguration, path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from environment variables. A set but malformed
// value is a configuration error rather than silently ignored.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("AMAL_CODEC_ADDR", &c.CodecAddr)
	str("AMAL_DB", &c.DBPath)
	str("AMAL_CRISIS_LINE", &c.CrisisLine)
	str("AMAL_CATALOG", &c.CatalogPath)
	str("AMAL_LABEL_MAPPING", &c.LabelMappingPath)
	str("AMAL_RAG_BACKEND", &c.RAG.Backend)
	str("AMAL_METRICS_ADDR", &c.Metrics.Addr)

	if v := getenv("AMAL_RAG_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return faults.Configf("AMAL_RAG_ENABLED=%q: %v", v, err)
		}
		c.RAG.Enabled = b
	}
	if v := getenv("AMAL_OOD_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return faults.Configf("AMAL_OOD_THRESHOLD=%q: %v", v, err)
		}
		c.Classifier.OODThreshold = f
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"AMAL_TOP_K", &c.RAG.TopK},
		{"AMAL_MAX_RETRIES", &c.RAG.MaxAttempts},
	}
	for _, e := range ints {
		if v := getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return faults.Configf("%s=%q: %v", e.key, v, err)
			}
			*e.dst = n
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"AMAL_CODEC_TIMEOUT", &c.CodecTimeout},
		{"AMAL_BACKOFF_BASE", &c.RAG.BaseDelay},
	}
	for _, e := range durations {
		if v := getenv(e.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return faults.Configf("%s=%q: %v", e.key, v, err)
			}
			*e.dst = d
		}
	}
	return nil
}

// #endregion load

// #region validate

// Validate checks every field that would otherwise fail at first use.
func (c Config) Validate() error {
	if c.CodecAddr == "" {
		return faults.Configf("codec_addr is empty")
	}
	if c.CodecTimeout < 0 {
		return faults.Configf("codec_timeout must be >= 0, got %s", c.CodecTimeout)
	}
	if c.CrisisLine == "" {
		return faults.Configf("crisis_line is empty")
	}
	if t := c.Classifier.OODThreshold; t <= 0 || t > 1 {
		return faults.Configf("classifier.ood_threshold %v outside (0, 1]", t)
	}
	if !c.RAG.Enabled {
		return nil
	}
	switch c.RAG.Backend {
	case BackendCodec, BackendChromem:
	default:
		return faults.Configf("rag.backend %q: want %q or %q", c.RAG.Backend, BackendCodec, BackendChromem)
	}
	if c.RAG.TopK < 1 {
		return faults.Configf("rag.top_k must be >= 1, got %d", c.RAG.TopK)
	}
	if c.RAG.MinSimilarity < -1 || c.RAG.MinSimilarity > 1 {
		return faults.Configf("rag.min_similarity %v outside [-1, 1]", c.RAG.MinSimilarity)
	}
	if c.RAG.RateLimit < 0 {
		return faults.Configf("rag.rate_limit must be >= 0, got %v", c.RAG.RateLimit)
	}
	if c.RAG.RateLimit > 0 && c.RAG.Burst < 1 {
		return faults.Configf("rag.burst must be >= 1 when rate limiting, got %d", c.RAG.Burst)
	}
	if c.RAG.Backend == BackendChromem && c.RAG.Collection == "" {
		return faults.Configf("rag.collection is empty")
	}
	return c.Policy().Validate()
}

// #endregion validate

// #region component-configs

// Intent returns the cascade settings.
func (c Config) Intent() intent.Config {
	return intent.Config{OODThreshold: c.Classifier.OODThreshold}
}

// Router returns the dispatcher settings.
func (c Config) Router() router.Config {
	return router.Config{CrisisLine: c.CrisisLine}
}

// Policy returns the generation retry policy.
func (c Config) Policy() rag.Policy {
	return rag.Policy{MaxAttempts: c.RAG.MaxAttempts, BaseDelay: c.RAG.BaseDelay, MaxDelay: c.RAG.MaxDelay}
}

// Invoker returns the RAG invoker settings, with a limiter when rate_limit > 0.
func (c Config) Invoker() rag.InvokerConfig {
	cfg := rag.InvokerConfig{TopK: c.RAG.TopK, Policy: c.Policy()}
	if c.RAG.RateLimit > 0 {
		cfg.Limiter = rate.NewLimiter(rate.Limit(c.RAG.RateLimit), c.RAG.Burst)
	}
	return cfg
}

// Retrieval returns the passage gate settings.
func (c Config) Retrieval() retrieval.RetrievalConfig {
	return retrieval.RetrievalConfig{SimilarityThreshold: c.RAG.MinSimilarity, MaxPassageLen: c.RAG.MaxPassageLen}
}

// Store returns the local collection settings.
func (c Config) Store() retrieval.StoreConfig {
	return retrieval.StoreConfig{PersistPath: c.RAG.ChromemPath, Collection: c.RAG.Collection, Compress: true}
}

// #endregion component-configs
