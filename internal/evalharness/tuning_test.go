package evalharness_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/farcloser/turnmark/internal/evalharness"
)

func TestComputeDeltaReportFlagsEasyRegression(t *testing.T) {
	baseline := evalharness.Scorecard{Results: []evalharness.ItemResult{
		{ID: "e1", Tier: "easy", BoundaryF120ms: 0.9, BoundaryF150ms: 0.9, SwitchesPerMin: 4, MicroIPUsPerMin: 2},
	}}
	current := evalharness.Scorecard{Results: []evalharness.ItemResult{
		{ID: "e1", Tier: "easy", BoundaryF120ms: 0.80, BoundaryF150ms: 0.9, SwitchesPerMin: 4, MicroIPUsPerMin: 2},
	}}

	dir := t.TempDir()
	baselinePath := filepath.Join(dir, "baseline.json")

	if err := os.WriteFile(baselinePath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("writing baseline stub: %v", err)
	}

	report, err := evalharness.ComputeDeltaReport(baseline, current, nil, baselinePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Failed {
		t.Fatalf("expected a guardrail failure, got %+v", report)
	}

	if len(report.Failures) == 0 {
		t.Fatal("expected at least one failure message")
	}
}

func TestComputeDeltaReportPassesWithNoChange(t *testing.T) {
	results := []evalharness.ItemResult{
		{ID: "e1", Tier: "easy", BoundaryF120ms: 0.9, BoundaryF150ms: 0.9, SwitchesPerMin: 4, MicroIPUsPerMin: 2},
	}

	dir := t.TempDir()
	baselinePath := filepath.Join(dir, "baseline.json")

	if err := os.WriteFile(baselinePath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("writing baseline stub: %v", err)
	}

	report, err := evalharness.ComputeDeltaReport(
		evalharness.Scorecard{Results: results}, evalharness.Scorecard{Results: results}, nil, baselinePath,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Failed {
		t.Fatalf("expected no failures for an identical run, got %+v", report.Failures)
	}
}

func TestGridCandidatesReturnsFourPoints(t *testing.T) {
	candidates := evalharness.GridCandidates()
	if len(candidates) != 4 {
		t.Fatalf("expected 4 grid candidates, got %d", len(candidates))
	}
}

func TestWriteLeaderboardSortsByThreeKeys(t *testing.T) {
	rows := []evalharness.LeaderboardRow{
		{Candidate: "worse", HardMicroIPUsPerMinDelta: 1.0},
		{Candidate: "better", HardMicroIPUsPerMinDelta: -1.0},
		// ties with "better" on the first key; larger |easy delta| ranks it after.
		{Candidate: "big-easy-delta", HardMicroIPUsPerMinDelta: -1.0, EasyBoundaryF120msDelta: -0.2},
		// ties with "worse" on the first two keys; fewer switches ranks it before.
		{Candidate: "fewer-switches", HardMicroIPUsPerMinDelta: 1.0, SwitchesPerMinDelta: -2.0},
	}

	dir := t.TempDir()

	if err := evalharness.WriteLeaderboard(rows, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "leaderboard.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("expected non-empty leaderboard.json")
	}

	var ranked []evalharness.LeaderboardRow
	if err := json.Unmarshal(data, &ranked); err != nil {
		t.Fatalf("unexpected error decoding leaderboard.json: %v", err)
	}

	want := []string{"better", "big-easy-delta", "fewer-switches", "worse"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(ranked))
	}

	for i, name := range want {
		if ranked[i].Candidate != name {
			t.Fatalf("rank %d: expected %s, got %s", i, name, ranked[i].Candidate)
		}
	}
}

func TestWriteLeaderboardEmptyIsNoOp(t *testing.T) {
	dir := t.TempDir()

	if err := evalharness.WriteLeaderboard(nil, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "leaderboard.json")); !os.IsNotExist(err) {
		t.Fatal("expected no leaderboard.json to be written for an empty candidate list")
	}
}
