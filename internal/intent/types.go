package intent

// #region imports
import (
	"context"
	"math"
)

// #endregion

// #region label

// Label is the routing intent of a query. The set is closed.
type Label string

const (
	LookingForSupport Label = "LookingForSupport"
	ExactFact         Label = "ExactFact"
	Harm              Label = "Harm"
	OutOfContext      Label = "OutOfContext"
)

// Labels lists every label in the classifier's default output order.
var Labels = []Label{LookingForSupport, ExactFact, Harm, OutOfContext}

// displayNames are the names the intent model was trained with.
var displayNames = map[Label]string{
	LookingForSupport: "Looking for support",
	ExactFact:         "Exact fact",
	Harm:              "Harm",
	OutOfContext:      "Out of context",
}

// DisplayName returns the human-readable model name of the label.
func (l Label) DisplayName() string {
	if n, ok := displayNames[l]; ok {
		return n
	}
	return string(l)
}

// ParseLabel accepts either the canonical identifier or the model display name.
func ParseLabel(s string) (Label, bool) {
	for _, l := range Labels {
		if s == string(l) || s == displayNames[l] {
			return l, true
		}
	}
	return "", false
}

// #endregion label

// #region stage

// Stage records which cascade stage decided the label.
type Stage string

const (
	StageOOD    Stage = "ood"
	StageIntent Stage = "intent"
)

// #endregion stage

// #region result

// Result is the cascade output for one query.
// When Stage is StageOOD, IntentScore is nil.
type Result struct {
	Label       Label
	Stage       Stage
	OODScore    *float64
	IntentScore *float64
}

// Confidence is the reported form of a Result's scores.
type Confidence struct {
	Stage   Stage    `json:"stage"`
	POOD    *float64 `json:"p_ood,omitempty"`
	PIntent *float64 `json:"p_intent,omitempty"`
}

// Confidence rounds scores to two decimals for reporting. Decisions are
// always made on the unrounded values.
func (r Result) Confidence() Confidence {
	return Confidence{
		Stage:   r.Stage,
		POOD:    round2(r.OODScore),
		PIntent: round2(r.IntentScore),
	}
}

func round2(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := math.Round(*p*100) / 100
	return &v
}

// #endregion result

// #region capabilities

// OODClass is the class name the domain scorer must report.
const OODClass = "out_of_domain"

// OODScorer scores normalized text against the in-domain/out-of-domain
// classes. The returned distribution must contain OODClass.
type OODScorer interface {
	ScoreDomain(ctx context.Context, normalized string) (map[string]float64, error)
}

// IntentClassifier returns a probability vector over the intent labels,
// aligned with the active LabelMapping. It receives the raw query text.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, raw string) ([]float64, error)
}

// #endregion capabilities

// #region config

// Config tunes the cascade.
type Config struct {
	OODThreshold float64 // p_ood at or above this short-circuits to OutOfContext
}

// DefaultConfig returns the production cascade settings.
func DefaultConfig() Config {
	return Config{OODThreshold: 0.09}
}

// #endregion config
