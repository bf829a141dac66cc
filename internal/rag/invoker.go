package rag

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
)

// #region config

// InvokerConfig tunes retrieval and generation retries.
type InvokerConfig struct {
	TopK    int
	Policy  Policy
	Limiter *rate.Limiter // optional, gates each completion attempt
	Sleeper Sleeper       // nil = TimerSleeper

	// OnBackoff is called before each wait with the 1-based attempt that failed.
	OnBackoff func(attempt int, delay time.Duration, err error)
}

// DefaultInvokerConfig returns top-5 retrieval with the default retry policy.
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{TopK: 5, Policy: DefaultPolicy()}
}

// #endregion config

// #region invoker

// Invoker runs retrieval then prompted generation with bounded retries.
// It is safe for concurrent use when its capabilities are.
type Invoker struct {
	retriever Retriever
	generator Generator
	cfg       InvokerConfig
}

// NewInvoker validates cfg and wires the capabilities.
func NewInvoker(retriever Retriever, generator Generator, cfg InvokerConfig) (*Invoker, error) {
	if retriever == nil || generator == nil {
		return nil, faults.Configf("rag invoker requires a retriever and a generator")
	}
	if cfg.TopK < 1 {
		return nil, faults.Configf("rag top_k must be >= 1, got %d", cfg.TopK)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = TimerSleeper{}
	}
	return &Invoker{retriever: retriever, generator: generator, cfg: cfg}, nil
}

// #endregion invoker

// #region invoke

// Invoke answers query in lang. Zero retrieved passages is a NoInformation
// answer, not an error, and uses no generation attempt. Exhausted retries
// return *faults.ExhaustedError. Cancellation returns ctx.Err().
func (inv *Invoker) Invoke(ctx context.Context, query string, lang language.Language) (Answer, error) {
	passages, err := inv.retriever.Search(ctx, query, inv.cfg.TopK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Answer{}, ctxErr
		}
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(passages) == 0 {
		return Answer{Kind: NoInformation}, nil
	}

	prompt := BuildPrompt(lang, BuildContext(passages), query)
	text, attempts, err := inv.complete(ctx, prompt)
	if err != nil {
		return Answer{Passages: len(passages), Attempts: attempts}, err
	}
	return Answer{Kind: Generated, Text: text, Passages: len(passages), Attempts: attempts}, nil
}

// complete calls the generator until it succeeds, fails permanently, or the
// policy's attempts run out. A wait follows every transient failure.
func (inv *Invoker) complete(ctx context.Context, prompt string) (string, int, error) {
	backoff := inv.cfg.Policy.Backoff()
	var delays []time.Duration
	var lastErr error

	attempts := 0
	for attempts < inv.cfg.Policy.MaxAttempts {
		if inv.cfg.Limiter != nil {
			if err := inv.cfg.Limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", attempts, ctxErr
				}
				return "", attempts, fmt.Errorf("rate limit: %w", err)
			}
		}

		attempts++
		text, err := inv.generator.Complete(ctx, prompt)
		if err == nil {
			return text, attempts, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", attempts, ctxErr
		}
		if !IsTransient(err) {
			return "", attempts, fmt.Errorf("generate: %w", err)
		}

		delay, stop := backoff.Next()
		if stop {
			break
		}
		delays = append(delays, delay)
		log.Printf("[RAG] attempt %d/%d failed: %v (waiting %s)", attempts, inv.cfg.Policy.MaxAttempts, err, delay)
		if inv.cfg.OnBackoff != nil {
			inv.cfg.OnBackoff(attempts, delay, err)
		}
		if err := inv.cfg.Sleeper.Sleep(ctx, delay); err != nil {
			return "", attempts, err
		}
	}

	return "", attempts, &faults.ExhaustedError{Attempts: attempts, Delays: delays, Err: lastErr}
}

// #endregion invoke
