package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/amal/go-router/internal/logging"
	"github.com/danielpatrickdp/amal/go-router/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to amal_router.db")
	last := flag.Int("last", 20, "show N most recent routing decisions")
	counts := flag.Bool("counts", false, "show per-source totals instead of rows")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/amal_router.db [--last N] [--counts] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *counts {
		err = runCountsMode(st, *jsonOut)
	} else {
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RequestID string   `json:"request_id"`
	Language  string   `json:"language"`
	Intent    string   `json:"intent,omitempty"`
	Stage     string   `json:"stage,omitempty"`
	POOD      *float64 `json:"p_ood,omitempty"`
	PIntent   *float64 `json:"p_intent,omitempty"`
	Source    string   `json:"source,omitempty"`
	Attempts  int      `json:"attempts"`
	Failure   string   `json:"failure,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
	CreatedAt string   `json:"created_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.Recent(st.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no routing decisions found")
		return nil
	}

	// Recent returns newest first; print chronologically
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = listRow{
			RequestID: e.RequestID,
			Language:  e.Language,
			Intent:    e.Intent,
			Stage:     e.Stage,
			POOD:      e.POOD,
			PIntent:   e.PIntent,
			Source:    e.Source,
			Attempts:  e.Attempts,
			Failure:   e.Failure,
			LatencyMS: e.LatencyMS,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	return printListTable(rows)
}

func printListTable(rows []listRow) error {
	fmt.Printf("%-10s  %-4s  %-18s  %-6s  %6s  %8s  %-24s  %4s  %7s  %s\n",
		"Request", "Lang", "Intent", "Stage", "p_ood", "p_intent", "Source", "Att", "Latency", "Time")
	fmt.Printf("%-10s+-%-4s+-%-18s+-%-6s+-%6s+-%8s+-%-24s+-%4s+-%7s+-%s\n",
		"----------", "----", "------------------", "------", "------", "--------",
		"------------------------", "----", "-------", "--------------------")

	for _, r := range rows {
		intent, source := r.Intent, r.Source
		if intent == "" {
			intent = "—"
		}
		if source == "" {
			source = "failed"
		}
		fmt.Printf("%-10s  %-4s  %-18s  %-6s  %6s  %8s  %-24s  %4d  %5dms  %s\n",
			shortID(r.RequestID), r.Language, intent, r.Stage, score(r.POOD), score(r.PIntent),
			source, r.Attempts, r.LatencyMS, r.CreatedAt)
		if r.Failure != "" {
			fmt.Printf("%-10s  ↳ %s\n", "", r.Failure)
		}
	}
	return nil
}

// #endregion list-mode

// #region counts-mode

func runCountsMode(st *store.Store, jsonOut bool) error {
	counts, err := logging.CountBySource(st.DB())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(counts)
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	fmt.Printf("%-24s  %6s  %6s\n", "Source", "Count", "Share")
	fmt.Printf("%-24s+-%6s+-%6s\n", "------------------------", "------", "------")
	for _, c := range counts {
		fmt.Printf("%-24s  %6d  %5.1f%%\n", c.Source, c.Count, 100*float64(c.Count)/float64(total))
	}
	fmt.Printf("\nTotal: %d\n", total)
	return nil
}

// #endregion counts-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func score(p *float64) string {
	if p == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *p)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
