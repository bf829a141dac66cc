package logging

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// timeFormat is fixed-width so created_at sorts lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes a routing entry to the routing_log table.
func LogDecision(db *sql.DB, entry RouteEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO routing_log (request_id, context_hash, language, intent, stage, p_ood, p_intent, source, attempts, failure, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		nullIfEmpty(entry.ContextHash),
		entry.Language,
		nullIfEmpty(entry.Intent),
		nullIfEmpty(entry.Stage),
		nullFloat(entry.POOD),
		nullFloat(entry.PIntent),
		nullIfEmpty(entry.Source),
		entry.Attempts,
		nullIfEmpty(entry.Failure),
		entry.LatencyMS,
		entry.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region recent
// Recent returns the newest n entries, newest first.
func Recent(db *sql.DB, n int) ([]RouteEntry, error) {
	rows, err := db.Query(
		`SELECT request_id, context_hash, language, intent, stage, p_ood, p_intent, source, attempts, failure, latency_ms, created_at
		 FROM routing_log ORDER BY created_at DESC, id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []RouteEntry
	for rows.Next() {
		var e RouteEntry
		var hash, intent, stage, source, failure sql.NullString
		var pOOD, pIntent sql.NullFloat64
		var created string
		if err := rows.Scan(&e.RequestID, &hash, &e.Language, &intent, &stage, &pOOD, &pIntent,
			&source, &e.Attempts, &failure, &e.LatencyMS, &created); err != nil {
			return nil, fmt.Errorf("scan routing row: %w", err)
		}
		e.ContextHash = hash.String
		e.Intent = intent.String
		e.Stage = stage.String
		e.Source = source.String
		e.Failure = failure.String
		if pOOD.Valid {
			v := pOOD.Float64
			e.POOD = &v
		}
		if pIntent.Valid {
			v := pIntent.Float64
			e.PIntent = &v
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion recent

// #region counts
// CountBySource summarizes how many queries each handler answered.
// Failed classifications are grouped under "classification_failed".
func CountBySource(db *sql.DB) ([]SourceCount, error) {
	rows, err := db.Query(
		`SELECT COALESCE(source, 'classification_failed') AS src, COUNT(*)
		 FROM routing_log GROUP BY src ORDER BY COUNT(*) DESC, src`,
	)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
// #endregion counts

// #region recorder
// DBRecorder persists routing entries to SQLite.
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder records into db, which must carry the routing_log schema.
func NewDBRecorder(db *sql.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record implements the router's decision sink.
func (r *DBRecorder) Record(entry RouteEntry) error {
	return LogDecision(r.db, entry)
}
// #endregion recorder

// #region helpers
// HashQuery returns the hex SHA-256 of a query, used instead of the text.
func HashQuery(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
// #endregion helpers
