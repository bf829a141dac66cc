package logging

import "time"

// #region route-entry
// RouteEntry is a single row in the routing_log table. The query text itself
// is never stored, only its hash.
type RouteEntry struct {
	RequestID   string
	ContextHash string
	Language    string
	Intent      string // empty when classification failed
	Stage       string
	POOD        *float64
	PIntent     *float64
	Source      string
	Attempts    int
	Failure     string
	LatencyMS   int64
	CreatedAt   time.Time
}
// #endregion route-entry

// #region source-count
// SourceCount is one row of the per-source summary.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}
// #endregion source-count
