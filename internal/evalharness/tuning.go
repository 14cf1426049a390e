package evalharness

import (
	"crypto/sha1" //nolint:gosec // content fingerprint for the delta report, not a security boundary
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
)

// Guardrail thresholds applied when comparing a current run against a
// baseline scorecard.
const (
	easyBoundaryDropThreshold    = -0.05
	easySwitchIncreaseFactor     = 1.25
	easyMicroIPUIncreaseFactor   = 1.25
	suspiciousSwitchWorseFactor  = 1.50
	suspiciousMicroWorseFactor   = 1.50
	minDenominator               = 1e-9
)

// DeltaRow is one item's per-metric comparison against its baseline
// counterpart.
type DeltaRow struct {
	ID                       string  `json:"id"`
	Tier                     string  `json:"tier"`
	BoundaryF120msBaseline   float64 `json:"boundary_f1_20ms_baseline"`
	BoundaryF120msCurrent    float64 `json:"boundary_f1_20ms_current"`
	BoundaryF120msDelta      float64 `json:"boundary_f1_20ms_delta"`
	BoundaryF150msBaseline   float64 `json:"boundary_f1_50ms_baseline"`
	BoundaryF150msCurrent    float64 `json:"boundary_f1_50ms_current"`
	BoundaryF150msDelta      float64 `json:"boundary_f1_50ms_delta"`
	MicroIPUsPerMinBaseline  float64 `json:"micro_ipus_per_min_baseline"`
	MicroIPUsPerMinCurrent   float64 `json:"micro_ipus_per_min_current"`
	MicroIPUsPerMinDelta     float64 `json:"micro_ipus_per_min_delta"`
	SwitchesPerMinBaseline   float64 `json:"switches_per_min_baseline"`
	SwitchesPerMinCurrent    float64 `json:"switches_per_min_current"`
	SwitchesPerMinDelta      float64 `json:"switches_per_min_delta"`
}

func newDeltaRow(id string, baseline, current ItemResult) DeltaRow {
	tier := current.Tier
	if tier == "" {
		tier = baseline.Tier
	}

	return DeltaRow{
		ID:                     id,
		Tier:                   tierOrDefault(tier),
		BoundaryF120msBaseline: baseline.BoundaryF120ms,
		BoundaryF120msCurrent:  current.BoundaryF120ms,
		BoundaryF120msDelta:    current.BoundaryF120ms - baseline.BoundaryF120ms,
		BoundaryF150msBaseline: baseline.BoundaryF150ms,
		BoundaryF150msCurrent:  current.BoundaryF150ms,
		BoundaryF150msDelta:    current.BoundaryF150ms - baseline.BoundaryF150ms,
		MicroIPUsPerMinBaseline: baseline.MicroIPUsPerMin,
		MicroIPUsPerMinCurrent:  current.MicroIPUsPerMin,
		MicroIPUsPerMinDelta:    current.MicroIPUsPerMin - baseline.MicroIPUsPerMin,
		SwitchesPerMinBaseline: baseline.SwitchesPerMin,
		SwitchesPerMinCurrent:  current.SwitchesPerMin,
		SwitchesPerMinDelta:    current.SwitchesPerMin - baseline.SwitchesPerMin,
	}
}

// DeltaReport is the full guardrail comparison of a current scorecard
// against a baseline.
type DeltaReport struct {
	Params       map[string]float64            `json:"params"`
	BaselinePath string                         `json:"baseline_path"`
	BaselineSHA1 string                         `json:"baseline_sha1"`
	Rows         []DeltaRow                     `json:"rows"`
	OverallDelta map[string]float64             `json:"overall_delta"`
	TierDelta    map[string]map[string]float64  `json:"tier_delta"`
	Failed       bool                           `json:"failed"`
	Failures     []string                       `json:"failures"`
	Warnings     []string                       `json:"warnings"`
}

// ComputeDeltaReport compares baseline and current scorecards item by
// item (matched by id), checks the easy/hard guardrails, and summarizes
// deltas overall and per tier.
func ComputeDeltaReport(baseline, current Scorecard, params map[string]float64, baselinePath string) (DeltaReport, error) {
	baselineByID := indexByID(baseline.Results)
	currentByID := indexByID(current.Results)

	ids := make([]string, 0, len(baselineByID))
	for id := range baselineByID {
		if _, ok := currentByID[id]; ok {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	rows := make([]DeltaRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, newDeltaRow(id, baselineByID[id], currentByID[id]))
	}

	var failures, warnings []string

	for _, row := range rows {
		if row.Tier != "easy" {
			continue
		}

		if row.BoundaryF120msDelta < easyBoundaryDropThreshold {
			failures = append(failures, fmt.Sprintf("easy regression: boundary_f1_20ms drop > 0.05 for %s", row.ID))
		}

		if row.BoundaryF150msDelta < easyBoundaryDropThreshold {
			failures = append(failures, fmt.Sprintf("easy regression: boundary_f1_50ms drop > 0.05 for %s", row.ID))
		}

		baselineSwitch := maxFloat(row.SwitchesPerMinBaseline, minDenominator)
		if row.SwitchesPerMinCurrent > baselineSwitch*easySwitchIncreaseFactor {
			failures = append(failures, fmt.Sprintf("easy regression: switches_per_min increase > 25%% for %s", row.ID))
		}

		baselineMicro := maxFloat(row.MicroIPUsPerMinBaseline, minDenominator)
		if row.MicroIPUsPerMinCurrent > baselineMicro*easyMicroIPUIncreaseFactor {
			failures = append(failures, fmt.Sprintf("easy regression: micro_ipus_per_min increase > 25%% for %s", row.ID))
		}
	}

	for _, row := range rows {
		if row.Tier != "hard" || row.BoundaryF120msDelta <= 0 {
			continue
		}

		baselineSwitch := maxFloat(row.SwitchesPerMinBaseline, minDenominator)
		baselineMicro := maxFloat(row.MicroIPUsPerMinBaseline, minDenominator)

		switchWorse := row.SwitchesPerMinCurrent > baselineSwitch*suspiciousSwitchWorseFactor
		microWorse := row.MicroIPUsPerMinCurrent > baselineMicro*suspiciousMicroWorseFactor

		if switchWorse || microWorse {
			warnings = append(warnings,
				fmt.Sprintf("suspicious improvement: hard boundary improved but instability worsened for %s", row.ID))
		}
	}

	baselineBytes, err := os.ReadFile(baselinePath) //nolint:gosec // baseline path is caller-controlled
	if err != nil {
		return DeltaReport{}, fmt.Errorf("%w: reading baseline %s: %w", apperr.ErrIO, baselinePath, err)
	}

	sum := sha1.Sum(baselineBytes) //nolint:gosec // fingerprint only

	return DeltaReport{
		Params:       params,
		BaselinePath: baselinePath,
		BaselineSHA1: hex.EncodeToString(sum[:]),
		Rows:         rows,
		OverallDelta: overallDelta(rows),
		TierDelta:    tierDelta(rows),
		Failed:       len(failures) > 0,
		Failures:     failures,
		Warnings:     warnings,
	}, nil
}

func indexByID(results []ItemResult) map[string]ItemResult {
	out := make(map[string]ItemResult, len(results))
	for _, r := range results {
		out[r.ID] = r
	}

	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func overallDelta(rows []DeltaRow) map[string]float64 {
	return map[string]float64{
		"boundary_f1_20ms":   meanOf(deltaColumn(rows, func(r DeltaRow) float64 { return r.BoundaryF120msDelta })),
		"boundary_f1_50ms":   meanOf(deltaColumn(rows, func(r DeltaRow) float64 { return r.BoundaryF150msDelta })),
		"micro_ipus_per_min": meanOf(deltaColumn(rows, func(r DeltaRow) float64 { return r.MicroIPUsPerMinDelta })),
		"switches_per_min":   meanOf(deltaColumn(rows, func(r DeltaRow) float64 { return r.SwitchesPerMinDelta })),
	}
}

func deltaColumn(rows []DeltaRow, get func(DeltaRow) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}

	return out
}

func tierDelta(rows []DeltaRow) map[string]map[string]float64 {
	grouped := make(map[string][]DeltaRow)
	for _, r := range rows {
		grouped[r.Tier] = append(grouped[r.Tier], r)
	}

	out := make(map[string]map[string]float64, len(grouped))
	for tier, tierRows := range grouped {
		out[tier] = overallDelta(tierRows)
	}

	return out
}

// WriteDeltaReport writes delta.json and delta.csv under outDir.
func WriteDeltaReport(report DeltaReport, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // output directory, not security-sensitive
		return fmt.Errorf("%w: creating output directory %s: %w", apperr.ErrIO, outDir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding delta report: %w", apperr.ErrInternal, err)
	}

	if err := os.WriteFile(filepath.Join(outDir, "delta.json"), data, 0o644); err != nil { //nolint:gosec // output artifact
		return fmt.Errorf("%w: writing delta.json: %w", apperr.ErrIO, err)
	}

	return writeDeltaCSV(filepath.Join(outDir, "delta.csv"), report.Rows)
}

func deltaCSVHeader() []string {
	return []string{
		"id", "tier",
		"boundary_f1_20ms_baseline", "boundary_f1_20ms_current", "boundary_f1_20ms_delta",
		"boundary_f1_50ms_baseline", "boundary_f1_50ms_current", "boundary_f1_50ms_delta",
		"micro_ipus_per_min_baseline", "micro_ipus_per_min_current", "micro_ipus_per_min_delta",
		"switches_per_min_baseline", "switches_per_min_current", "switches_per_min_delta",
	}
}

func deltaCSVRow(row DeltaRow) []string {
	return []string{
		row.ID, row.Tier,
		formatFloat(row.BoundaryF120msBaseline), formatFloat(row.BoundaryF120msCurrent), formatFloat(row.BoundaryF120msDelta),
		formatFloat(row.BoundaryF150msBaseline), formatFloat(row.BoundaryF150msCurrent), formatFloat(row.BoundaryF150msDelta),
		formatFloat(row.MicroIPUsPerMinBaseline), formatFloat(row.MicroIPUsPerMinCurrent), formatFloat(row.MicroIPUsPerMinDelta),
		formatFloat(row.SwitchesPerMinBaseline), formatFloat(row.SwitchesPerMinCurrent), formatFloat(row.SwitchesPerMinDelta),
	}
}

func writeDeltaCSV(path string, rows []DeltaRow) error {
	f, err := os.Create(path) //nolint:gosec // path is caller-controlled output location
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", apperr.ErrIO, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(rows) > 0 {
		if err := w.Write(deltaCSVHeader()); err != nil {
			return fmt.Errorf("%w: writing csv header: %w", apperr.ErrIO, err)
		}

		for _, row := range rows {
			if err := w.Write(deltaCSVRow(row)); err != nil {
				return fmt.Errorf("%w: writing csv row: %w", apperr.ErrIO, err)
			}
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing %s: %w", apperr.ErrIO, path, err)
	}

	return nil
}

// GridCandidates returns the fixed four-point tuning grid used by the
// `tune --grid` workflow.
func GridCandidates() []decode.TuningParams {
	return []decode.TuningParams{
		{SpeakerSwitchPenalty: -6.0, LeakEntryBias: -2.0, OvlTransitionCost: -3.0},
		{SpeakerSwitchPenalty: -7.0, LeakEntryBias: -2.0, OvlTransitionCost: -3.0},
		{SpeakerSwitchPenalty: -6.0, LeakEntryBias: -2.5, OvlTransitionCost: -3.0},
		{SpeakerSwitchPenalty: -7.0, LeakEntryBias: -2.5, OvlTransitionCost: -3.5},
	}
}

// ParamsDict flattens a TuningParams into the map shape the delta report
// and leaderboard records alongside each candidate's metrics.
func ParamsDict(params decode.TuningParams) map[string]float64 {
	return map[string]float64{
		"speaker_switch_penalty": params.SpeakerSwitchPenalty,
		"leak_entry_bias":        params.LeakEntryBias,
		"ovl_transition_cost":    params.OvlTransitionCost,
	}
}

// LeaderboardRow is one grid candidate's summary, ranked across runs by
// WriteLeaderboard.
type LeaderboardRow struct {
	Candidate               string             `json:"candidate"`
	Failed                  bool               `json:"failed"`
	HardMicroIPUsPerMinDelta float64           `json:"hard_micro_ipus_per_min_delta"`
	EasyBoundaryF120msDelta  float64           `json:"easy_boundary_f1_20ms_delta"`
	SwitchesPerMinDelta      float64           `json:"switches_per_min_delta"`
	Params                   map[string]float64 `json:"params"`
}

// WriteLeaderboard sorts candidates by (hard_micro_ipus_per_min_delta
// asc, |easy_boundary_f1_20ms_delta| asc, switches_per_min_delta asc) and
// writes leaderboard.json/leaderboard.csv under outDir.
func WriteLeaderboard(rows []LeaderboardRow, outDir string) error {
	if len(rows) == 0 {
		return nil
	}

	sorted := append([]LeaderboardRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		if a.HardMicroIPUsPerMinDelta != b.HardMicroIPUsPerMinDelta {
			return a.HardMicroIPUsPerMinDelta < b.HardMicroIPUsPerMinDelta
		}

		absA, absB := absFloat(a.EasyBoundaryF120msDelta), absFloat(b.EasyBoundaryF120msDelta)
		if absA != absB {
			return absA < absB
		}

		return a.SwitchesPerMinDelta < b.SwitchesPerMinDelta
	})

	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // output directory, not security-sensitive
		return fmt.Errorf("%w: creating output directory %s: %w", apperr.ErrIO, outDir, err)
	}

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding leaderboard: %w", apperr.ErrInternal, err)
	}

	if err := os.WriteFile(filepath.Join(outDir, "leaderboard.json"), data, 0o644); err != nil { //nolint:gosec // output artifact
		return fmt.Errorf("%w: writing leaderboard.json: %w", apperr.ErrIO, err)
	}

	return writeLeaderboardCSV(filepath.Join(outDir, "leaderboard.csv"), sorted)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func writeLeaderboardCSV(path string, rows []LeaderboardRow) error {
	f, err := os.Create(path) //nolint:gosec // path is caller-controlled output location
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", apperr.ErrIO, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"candidate", "failed", "hard_micro_ipus_per_min_delta", "easy_boundary_f1_20ms_delta", "switches_per_min_delta",
		"speaker_switch_penalty", "leak_entry_bias", "ovl_transition_cost",
	}

	if err := w.Write(header); err != nil {
		return fmt.Errorf("%w: writing csv header: %w", apperr.ErrIO, err)
	}

	for _, row := range rows {
		record := []string{
			row.Candidate,
			fmt.Sprintf("%t", row.Failed),
			formatFloat(row.HardMicroIPUsPerMinDelta),
			formatFloat(row.EasyBoundaryF120msDelta),
			formatFloat(row.SwitchesPerMinDelta),
			formatFloat(row.Params["speaker_switch_penalty"]),
			formatFloat(row.Params["leak_entry_bias"]),
			formatFloat(row.Params["ovl_transition_cost"]),
		}

		if err := w.Write(record); err != nil {
			return fmt.Errorf("%w: writing csv row: %w", apperr.ErrIO, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing %s: %w", apperr.ErrIO, path, err)
	}

	return nil
}
