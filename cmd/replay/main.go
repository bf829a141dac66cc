package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/amal/go-router/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		os.Exit(2)
	}
	os.Exit(runFixtureMode(*fixturePath))
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	turns := make([]replay.Turn, len(f.Turns))
	for i := range f.Turns {
		turns[i] = f.Turns[i].ToTurn()
	}

	results, err := replay.Replay(context.Background(), turns, f.Config.ToReplayConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	code := printComparison(results, f.ExpectedResults)
	summary := replay.Summarize(results)
	printSummary(summary)
	if summary.HarmGenerations > 0 {
		fmt.Fprintf(os.Stderr, "SAFETY: %d harm turn(s) reached retrieval or generation\n", summary.HarmGenerations)
		return 1
	}
	return code
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	fmt.Printf("%-16s| %-24s| %-24s| %s\n", "Turn", "Expected", "Replayed", "Match")
	fmt.Printf("%-16s+%-25s+%-25s+%s\n",
		"----------------", "-------------------------", "-------------------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		match := "DIFF"
		if replay.Matches(expected[i], results[i]) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-16s| %-24s| %-24s| %s\n",
			results[i].TurnID, outcome(expected[i].Source, expected[i].Error),
			outcome(results[i].Source, results[i].Error), match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

func printSummary(s replay.ReplaySummary) {
	sources := make([]string, 0, len(s.BySource))
	for src := range s.BySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	fmt.Printf("Routed: %d turns, %d errors, %d retries\n", s.TotalTurns, s.Errors, s.Retries)
	for _, src := range sources {
		fmt.Printf("  %-24s %d\n", src, s.BySource[src])
	}
}

func outcome(source, errBucket string) string {
	if errBucket != "" {
		return "error:" + errBucket
	}
	return source
}

// #endregion output
