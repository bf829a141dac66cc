package router

// #region imports
import (
	"context"

	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
	"github.com/danielpatrickdp/amal/go-router/internal/logging"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #endregion

// #region sources

// Source tags name the handler that produced a response.
const (
	SourceOutOfContext   = "out_of_context_handler"
	SourceHarm           = "harm_crisis_handler"
	SourceRAG            = "rag_scientific"
	SourceNoInformation  = "rag_no_information"
	SourceRAGUnavailable = "rag_unavailable"
	SourceRAGError       = "rag_error"
	SourceSupport        = "support_in_development"
)

// #endregion sources

// #region capabilities

// Classifier assigns one intent label to a query. *intent.Cascade implements it.
type Classifier interface {
	Classify(ctx context.Context, raw string) (intent.Result, error)
}

// Answerer answers factual questions. *rag.Invoker implements it.
type Answerer interface {
	Invoke(ctx context.Context, query string, lang language.Language) (rag.Answer, error)
}

// Recorder receives one entry per processed query.
type Recorder interface {
	Record(entry logging.RouteEntry) error
}

// #endregion capabilities

// #region response

// Response is the outcome of routing one query. Failure is set when a
// non-safety handler degraded to its fallback text.
type Response struct {
	RequestID      string
	Text           string
	Source         string
	Language       language.Language
	Classification intent.Result
	Attempts       int
	Failure        error
}

// Reply is the JSON shape returned to clients.
type Reply struct {
	Intent     intent.Label      `json:"intent"`
	Confidence intent.Confidence `json:"confidence"`
	Response   string            `json:"response"`
	Language   language.Language `json:"language"`
	Source     string            `json:"source"`
}

// Reply converts a Response to its wire form with rounded scores.
func (r Response) Reply() Reply {
	return Reply{
		Intent:     r.Classification.Label,
		Confidence: r.Classification.Confidence(),
		Response:   r.Text,
		Language:   r.Language,
		Source:     r.Source,
	}
}

// #endregion response

// #region config

// Config holds the per-deployment values substituted into templates.
type Config struct {
	CrisisLine string
}

// DefaultConfig uses the national addiction helpline.
func DefaultConfig() Config {
	return Config{CrisisLine: "3033"}
}

// Health mirrors the service health probe.
type Health struct {
	Status      string `json:"status"`
	IntentModel string `json:"intent_model"`
	RAGModel    string `json:"rag_model"`
}

// #endregion config
