package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Turns           []FixtureTurn           `json:"turns"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig holds the router settings a fixture was recorded with.
// Zero values take the production defaults.
type FixtureConfig struct {
	OODThreshold float64  `json:"ood_threshold"`
	CrisisLine   string   `json:"crisis_line"`
	RAGDisabled  bool     `json:"rag_disabled"`
	MaxAttempts  int      `json:"max_attempts"`
	BaseDelayMS  int      `json:"base_delay_ms"`
	Labels       []string `json:"labels"` // intent model label order
}

// FixtureTurn scripts every capability response for one query.
type FixtureTurn struct {
	TurnID      string    `json:"turn_id"`
	Query       string    `json:"query"`
	POOD        float64   `json:"p_ood"`
	IntentProbs []float64 `json:"intent_probs"`

	ClassifierError string `json:"classifier_error"` // non-empty = the OOD scorer fails

	Passages          []string `json:"passages"`
	GeneratorFailures int      `json:"generator_failures"` // leading failed completions
	GeneratorCode     string   `json:"generator_code"`     // gRPC code name, default "Unavailable"
	Answer            string   `json:"answer"`
}

// FixtureExpectedResult captures the expected routing per turn. Empty fields
// are not checked.
type FixtureExpectedResult struct {
	TurnID   string `json:"turn_id"`
	Intent   string `json:"intent"`
	Source   string `json:"source"`
	Language string `json:"language"`
	Error    string `json:"error"` // router.FailureReason bucket of a returned error
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.OODThreshold > 0 {
		cfg.Intent.OODThreshold = fc.OODThreshold
	}
	if fc.CrisisLine != "" {
		cfg.Router.CrisisLine = fc.CrisisLine
	}
	if fc.MaxAttempts > 0 {
		cfg.Policy.MaxAttempts = fc.MaxAttempts
	}
	if fc.BaseDelayMS > 0 {
		cfg.Policy.BaseDelay = time.Duration(fc.BaseDelayMS) * time.Millisecond
	}
	if len(fc.Labels) > 0 {
		cfg.Labels = intent.NewLabelMapping(fc.Labels...)
	}
	cfg.RAGEnabled = !fc.RAGDisabled
	return cfg
}

// ToTurn converts a FixtureTurn to a Turn.
func (ft *FixtureTurn) ToTurn() Turn {
	passages := make([]rag.Passage, len(ft.Passages))
	for i, text := range ft.Passages {
		passages[i] = rag.Passage{ID: fmt.Sprintf("%s-p%d", ft.TurnID, i), Text: text, Similarity: 1}
	}
	code := ft.GeneratorCode
	if code == "" {
		code = "Unavailable"
	}
	return Turn{
		TurnID:            ft.TurnID,
		Query:             ft.Query,
		POOD:              ft.POOD,
		IntentProbs:       ft.IntentProbs,
		ClassifierError:   ft.ClassifierError,
		Passages:          passages,
		GeneratorFailures: ft.GeneratorFailures,
		GeneratorCode:     code,
		Answer:            ft.Answer,
	}
}

// #endregion fixture-loader
