package rag

import "context"

// #region passage

// Passage is one retrieved knowledge-base chunk.
type Passage struct {
	ID         string
	Text       string
	Metadata   map[string]string
	Similarity float32
}

// Metadata keys carried by the research collection.
const (
	MetaCategory          = "category"
	MetaGeographicContext = "geographic_context"
	MetaTimeframe         = "timeframe"
)

// #endregion passage

// #region capabilities

// Retriever returns up to k passages relevant to query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
}

// Generator completes a prompt. Errors may be transient.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// #endregion capabilities

// #region answer

// AnswerKind distinguishes a generated answer from an empty retrieval.
type AnswerKind string

const (
	Generated     AnswerKind = "generated"
	NoInformation AnswerKind = "no_information"
)

// Answer is the result of one successful invocation.
type Answer struct {
	Kind     AnswerKind
	Text     string // empty for NoInformation
	Passages int
	Attempts int
}

// #endregion answer
