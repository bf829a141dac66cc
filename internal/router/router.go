package router

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
	"github.com/danielpatrickdp/amal/go-router/internal/logging"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
	"github.com/danielpatrickdp/amal/go-router/internal/templates"
)

// #endregion

// #region router-struct

// Router detects the language of a query, classifies it and dispatches it to
// exactly one handler. It is immutable after New and safe for concurrent use.
type Router struct {
	classifier Classifier
	static     staticResponder
	rag        Answerer // nil when RAG is not configured
	recorder   Recorder
	metrics    *Metrics
}

// Option configures optional collaborators.
type Option func(*Router)

// WithRAG enables the ExactFact path.
func WithRAG(a Answerer) Option {
	return func(r *Router) { r.rag = a }
}

// WithRecorder persists one entry per query.
func WithRecorder(rec Recorder) Option {
	return func(r *Router) { r.recorder = rec }
}

// WithMetrics reports per-query counters and latency.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// #endregion router-struct

// #region constructor

// New builds a Router. The classifier and catalog are required; the catalog
// is validated here so a missing English template fails at startup.
func New(classifier Classifier, catalog *templates.Catalog, cfg Config, opts ...Option) (*Router, error) {
	if classifier == nil {
		return nil, faults.Configf("router requires a classifier")
	}
	if catalog == nil {
		return nil, faults.Configf("router requires a template catalog")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if cfg.CrisisLine == "" {
		return nil, faults.Configf("crisis line must be set")
	}

	r := &Router{
		classifier: classifier,
		static:     newStaticResponder(catalog, cfg),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// #endregion constructor

// #region process

// Process routes one query. The caller guarantees it is non-empty after trim.
// Classification failures and unknown labels are returned as errors; RAG
// failures degrade to a localized response with Failure set.
func (r *Router) Process(ctx context.Context, query string) (Response, error) {
	start := time.Now()
	reqID := uuid.New().String()
	hash := logging.HashQuery(query)
	lang := language.Detect(query)

	cls, err := r.classifier.Classify(ctx, query)
	if err != nil {
		log.Printf("[ROUTE] %s lang=%s classify failed: %v", hash[:12], lang, err)
		r.metrics.failed(FailureReason(err))
		r.record(reqID, hash, lang, intent.Result{}, Response{}, err, start)
		return Response{}, fmt.Errorf("classify: %w", err)
	}

	resp, err := r.dispatch(ctx, query, lang, cls)
	if err != nil {
		log.Printf("[ROUTE] %s lang=%s label=%s dispatch failed: %v", hash[:12], lang, cls.Label, err)
		r.metrics.failed(FailureReason(err))
		r.record(reqID, hash, lang, cls, Response{}, err, start)
		return Response{}, err
	}
	resp.RequestID = reqID

	log.Printf("[ROUTE] %s lang=%s label=%s stage=%s → %s", hash[:12], lang, cls.Label, cls.Stage, resp.Source)
	if resp.Failure != nil {
		r.metrics.failed(FailureReason(resp.Failure))
	}
	r.metrics.observe(resp, time.Since(start))
	r.record(reqID, hash, lang, cls, resp, resp.Failure, start)
	return resp, nil
}

// dispatch switches over the closed label set. A label outside it is an error,
// never a default response.
func (r *Router) dispatch(ctx context.Context, query string, lang language.Language, cls intent.Result) (Response, error) {
	switch cls.Label {
	case intent.OutOfContext:
		return r.static.outOfContext(lang, cls), nil
	case intent.Harm:
		return r.static.crisis(lang, cls), nil
	case intent.LookingForSupport:
		return r.static.support(lang, cls), nil
	case intent.ExactFact:
		return r.answerFact(ctx, query, lang, cls)
	default:
		return Response{}, fmt.Errorf("%w: %q", faults.ErrUnknownIntentLabel, cls.Label)
	}
}

// answerFact runs retrieval-augmented generation and maps its outcomes to
// responses.
func (r *Router) answerFact(ctx context.Context, query string, lang language.Language, cls intent.Result) (Response, error) {
	if r.rag == nil {
		return r.static.respond(templates.KeyRAGUnavailable, SourceRAGUnavailable, lang, cls), nil
	}

	ans, err := r.rag.Invoke(ctx, query, lang)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		resp := r.static.respond(templates.KeyRAGError, SourceRAGError, lang, cls)
		resp.Attempts = ans.Attempts
		resp.Failure = err
		return resp, nil
	}

	if ans.Kind == rag.NoInformation {
		return r.static.respond(templates.KeyNoInformation, SourceNoInformation, lang, cls), nil
	}
	return Response{
		Text:           ans.Text,
		Source:         SourceRAG,
		Language:       lang,
		Classification: cls,
		Attempts:       ans.Attempts,
	}, nil
}

// #endregion process

// #region health

// Health reports which models are wired.
func (r *Router) Health() Health {
	h := Health{Status: "healthy", IntentModel: "loaded", RAGModel: "not_loaded"}
	if r.rag != nil {
		h.RAGModel = "loaded"
	}
	return h
}

// #endregion health

// #region record

func (r *Router) record(reqID, hash string, lang language.Language, cls intent.Result, resp Response, failure error, start time.Time) {
	if r.recorder == nil {
		return
	}
	entry := logging.RouteEntry{
		RequestID:   reqID,
		ContextHash: hash,
		Language:    string(lang),
		Intent:      string(cls.Label),
		Stage:       string(cls.Stage),
		POOD:        cls.OODScore,
		PIntent:     cls.IntentScore,
		Source:      resp.Source,
		Attempts:    resp.Attempts,
		LatencyMS:   time.Since(start).Milliseconds(),
	}
	if failure != nil {
		entry.Failure = failure.Error()
	}
	if err := r.recorder.Record(entry); err != nil {
		log.Printf("[ROUTE] record %s: %v", reqID, err)
	}
}

// FailureReason buckets an error for metrics and replay reports.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, faults.ErrClassifierUnavailable):
		return "classifier_unavailable"
	case errors.Is(err, faults.ErrUnknownIntentLabel):
		return "unknown_label"
	case errors.Is(err, faults.ErrGenerationExhausted):
		return "generation_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

// #endregion record
