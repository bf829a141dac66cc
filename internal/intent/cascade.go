package intent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
)

// #region cascade

// Cascade runs the out-of-domain scorer, then the intent classifier.
// It holds no per-query state and is safe for concurrent use.
type Cascade struct {
	ood       OODScorer
	clf       IntentClassifier
	mapping   LabelMapping
	threshold float64
}

// NewCascade wires the two classifier capabilities.
func NewCascade(ood OODScorer, clf IntentClassifier, mapping LabelMapping, cfg Config) (*Cascade, error) {
	if ood == nil || clf == nil {
		return nil, faults.Configf("cascade requires both an OOD scorer and an intent classifier")
	}
	if mapping.Len() == 0 {
		mapping = DefaultLabelMapping()
	}
	if cfg.OODThreshold <= 0 || cfg.OODThreshold > 1 {
		return nil, faults.Configf("ood threshold %v outside (0, 1]", cfg.OODThreshold)
	}
	return &Cascade{ood: ood, clf: clf, mapping: mapping, threshold: cfg.OODThreshold}, nil
}

// Threshold returns the active out-of-domain threshold.
func (c *Cascade) Threshold() float64 { return c.threshold }

// #endregion cascade

// #region classify

// Classify assigns exactly one Label to raw. Capability failures return
// ErrClassifierUnavailable; a winning index with no known label returns
// ErrUnknownIntentLabel.
func (c *Cascade) Classify(ctx context.Context, raw string) (Result, error) {
	dist, err := c.ood.ScoreDomain(ctx, Normalize(raw))
	if err != nil {
		return Result{}, unavailable("ood scorer", err)
	}
	pOOD, ok := dist[OODClass]
	if !ok {
		return Result{}, fmt.Errorf("%w: ood scorer returned no %q class", faults.ErrClassifierUnavailable, OODClass)
	}
	if !isProbability(pOOD) {
		return Result{}, fmt.Errorf("%w: ood score %v not a probability", faults.ErrClassifierUnavailable, pOOD)
	}

	if pOOD >= c.threshold {
		log.Printf("[CASCADE] out of domain: p_ood=%.3f >= %.2f", pOOD, c.threshold)
		return Result{Label: OutOfContext, Stage: StageOOD, OODScore: &pOOD}, nil
	}

	probs, err := c.clf.ClassifyIntent(ctx, raw)
	if err != nil {
		return Result{}, unavailable("intent classifier", err)
	}
	idx, err := argmax(probs)
	if err != nil {
		return Result{}, err
	}
	if len(probs) != c.mapping.Len() {
		return Result{}, fmt.Errorf("%w: intent vector has %d entries, mapping has %d",
			faults.ErrUnknownIntentLabel, len(probs), c.mapping.Len())
	}
	label, err := c.mapping.Resolve(idx)
	if err != nil {
		return Result{}, err
	}

	pIntent := probs[idx]
	return Result{Label: label, Stage: StageIntent, OODScore: &pOOD, IntentScore: &pIntent}, nil
}

// #endregion classify

// #region helpers

// unavailable wraps a capability error. Context errors pass through so
// callers can tell cancellation apart from an outage.
func unavailable(what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %v", faults.ErrClassifierUnavailable, what, err)
}

// argmax returns the index of the largest probability; the first index wins ties.
func argmax(probs []float64) (int, error) {
	if len(probs) == 0 {
		return 0, fmt.Errorf("%w: intent classifier returned an empty vector", faults.ErrClassifierUnavailable)
	}
	best := 0
	for i, p := range probs {
		if !isProbability(p) {
			return 0, fmt.Errorf("%w: intent probability %v at index %d", faults.ErrClassifierUnavailable, p, i)
		}
		if p > probs[best] {
			best = i
		}
	}
	return best, nil
}

func isProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// #endregion helpers
