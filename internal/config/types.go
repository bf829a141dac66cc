package config

import "time"

// #region config

// Config is the full router configuration. Zero-valued optional paths mean
// "use the embedded default".
type Config struct {
	CodecAddr        string        `yaml:"codec_addr"`
	CodecTimeout     time.Duration `yaml:"codec_timeout"`
	DBPath           string        `yaml:"db_path"`
	CrisisLine       string        `yaml:"crisis_line"`
	CatalogPath      string        `yaml:"catalog_path"`
	LabelMappingPath string        `yaml:"label_mapping_path"`

	Classifier ClassifierConfig `yaml:"classifier"`
	RAG        RAGConfig        `yaml:"rag"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ClassifierConfig tunes the intent cascade.
type ClassifierConfig struct {
	OODThreshold float64 `yaml:"ood_threshold"`
}

// RAGConfig tunes retrieval and generation.
type RAGConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Backend        string        `yaml:"backend"` // BackendCodec or BackendChromem
	ChromemPath    string        `yaml:"chromem_path"`
	Collection     string        `yaml:"collection"`
	TopK           int           `yaml:"top_k"`
	MinSimilarity  float32       `yaml:"min_similarity"`
	MaxPassageLen  int           `yaml:"max_passage_len"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	RateLimit      float64       `yaml:"rate_limit"` // completions per second, 0 = unlimited
	Burst          int           `yaml:"burst"`
	EmbedCacheSize int           `yaml:"embed_cache_size"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// Retrieval backends.
const (
	BackendCodec   = "codec"
	BackendChromem = "chromem"
)

// #endregion config
