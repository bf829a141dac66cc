package replay

// #region imports
import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
	"github.com/danielpatrickdp/amal/go-router/internal/router"
	"github.com/danielpatrickdp/amal/go-router/internal/templates"
)

// #endregion

// #region types

// Turn is one scripted query with the capability behaviour it should see.
type Turn struct {
	TurnID            string
	Query             string
	POOD              float64
	IntentProbs       []float64
	ClassifierError   string
	Passages          []rag.Passage
	GeneratorFailures int
	GeneratorCode     string
	Answer            string
}

// ReplayConfig bundles the cascade, router and retry settings for a run.
type ReplayConfig struct {
	Intent     intent.Config
	Router     router.Config
	Policy     rag.Policy
	Labels     intent.LabelMapping
	RAGEnabled bool
	Catalog    *templates.Catalog // nil = embedded default
}

// DefaultReplayConfig returns production settings.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Intent:     intent.DefaultConfig(),
		Router:     router.DefaultConfig(),
		Policy:     rag.DefaultPolicy(),
		Labels:     intent.DefaultLabelMapping(),
		RAGEnabled: true,
	}
}

// ReplayResult captures the outcome of routing one turn.
type ReplayResult struct {
	TurnID   string
	Intent   string
	Stage    string
	Language string
	Source   string
	Error    string // router.FailureReason of a returned error, "" on success
	Failure  string // degraded-response failure text

	RetrievalCalls int
	GeneratorCalls int
	Delays         []time.Duration // backoff waits requested (not slept)
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	BySource   map[string]int
	Errors     int
	Retries    int
	// HarmGenerations counts Harm turns that reached retrieval or generation.
	// Anything above zero is a safety regression.
	HarmGenerations int
}

// #endregion types

// #region replay

// Replay routes every turn through a freshly built router backed by scripted
// capabilities. Turns run concurrently and results keep input order. Backoff
// waits are recorded, not slept.
func Replay(ctx context.Context, turns []Turn, config ReplayConfig) ([]ReplayResult, error) {
	catalog := config.Catalog
	if catalog == nil {
		var err error
		catalog, err = templates.Default()
		if err != nil {
			return nil, err
		}
	}

	results := make([]ReplayResult, len(turns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, turn := range turns {
		g.Go(func() error {
			res, err := replayTurn(gctx, turn, config, catalog)
			if err != nil {
				return fmt.Errorf("turn %s: %w", turn.TurnID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// replayTurn returns an error only for harness setup failures; routing errors
// are part of the result.
func replayTurn(ctx context.Context, turn Turn, config ReplayConfig, catalog *templates.Catalog) (ReplayResult, error) {
	scorer := &scriptedScorer{pOOD: turn.POOD, failure: turn.ClassifierError}
	cascade, err := intent.NewCascade(scorer, scriptedIntent{probs: turn.IntentProbs}, config.Labels, config.Intent)
	if err != nil {
		return ReplayResult{}, err
	}

	retr := &scriptedRetriever{passages: turn.Passages}
	gen := &scriptedGenerator{failures: turn.GeneratorFailures, code: parseCode(turn.GeneratorCode), answer: turn.Answer}
	sleeper := &recordingSleeper{}

	opts := []router.Option{}
	if config.RAGEnabled {
		invCfg := rag.DefaultInvokerConfig()
		invCfg.Policy = config.Policy
		invCfg.Sleeper = sleeper
		inv, err := rag.NewInvoker(retr, gen, invCfg)
		if err != nil {
			return ReplayResult{}, err
		}
		opts = append(opts, router.WithRAG(inv))
	}
	r, err := router.New(cascade, catalog, config.Router, opts...)
	if err != nil {
		return ReplayResult{}, err
	}

	res := ReplayResult{TurnID: turn.TurnID}
	resp, err := r.Process(ctx, turn.Query)
	if err != nil {
		res.Error = router.FailureReason(err)
	} else {
		res.Intent = string(resp.Classification.Label)
		res.Stage = string(resp.Classification.Stage)
		res.Language = string(resp.Language)
		res.Source = resp.Source
		if resp.Failure != nil {
			res.Failure = resp.Failure.Error()
		}
	}
	res.RetrievalCalls = int(retr.calls.Load())
	res.GeneratorCalls = int(gen.calls.Load())
	res.Delays = sleeper.recorded()

	if res.Intent == string(intent.Harm) && (res.RetrievalCalls > 0 || res.GeneratorCalls > 0) {
		log.Printf("[REPLAY] turn %s: harm reached RAG (search=%d complete=%d)", turn.TurnID, res.RetrievalCalls, res.GeneratorCalls)
	}
	return res, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTurns: len(results), BySource: map[string]int{}}
	for _, r := range results {
		if r.Error != "" {
			s.Errors++
			continue
		}
		s.BySource[r.Source]++
		s.Retries += len(r.Delays)
		if r.Intent == string(intent.Harm) && (r.RetrievalCalls > 0 || r.GeneratorCalls > 0) {
			s.HarmGenerations++
		}
	}
	return s
}

// Matches reports whether a result agrees with every non-empty expected field.
func Matches(expected FixtureExpectedResult, got ReplayResult) bool {
	return (expected.Intent == "" || expected.Intent == got.Intent) &&
		(expected.Source == "" || expected.Source == got.Source) &&
		(expected.Language == "" || expected.Language == got.Language) &&
		expected.Error == got.Error
}

// #endregion replay

// #region scripted-capabilities

type scriptedScorer struct {
	pOOD    float64
	failure string
}

func (s *scriptedScorer) ScoreDomain(context.Context, string) (map[string]float64, error) {
	if s.failure != "" {
		return nil, status.Error(codes.Unavailable, s.failure)
	}
	return map[string]float64{intent.OODClass: s.pOOD, "in_domain": 1 - s.pOOD}, nil
}

type scriptedIntent struct {
	probs []float64
}

func (s scriptedIntent) ClassifyIntent(context.Context, string) ([]float64, error) {
	return s.probs, nil
}

type scriptedRetriever struct {
	passages []rag.Passage
	calls    atomic.Int32
}

func (s *scriptedRetriever) Search(_ context.Context, _ string, k int) ([]rag.Passage, error) {
	s.calls.Add(1)
	if len(s.passages) > k {
		return s.passages[:k], nil
	}
	return s.passages, nil
}

type scriptedGenerator struct {
	failures int
	code     codes.Code
	answer   string
	calls    atomic.Int32
}

func (s *scriptedGenerator) Complete(context.Context, string) (string, error) {
	if n := s.calls.Add(1); int(n) <= s.failures {
		return "", status.Errorf(s.code, "scripted failure %d", n)
	}
	return s.answer, nil
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// parseCode maps a gRPC error code name ("Unavailable", "InvalidArgument",
// ...) to its code. OK is not an error, so it and unknown names become Unknown.
func parseCode(name string) codes.Code {
	for c := codes.Canceled; c <= codes.Unauthenticated; c++ {
		if c.String() == name {
			return c
		}
	}
	return codes.Unknown
}

// #endregion scripted-capabilities
