package evalharness

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/turnmark/internal/apperr"
)

// metricFields lists, in a fixed order, the ItemResult fields aggregated
// into a scorecard summary. Keeping this list explicit (rather than
// reflecting over the struct) keeps the aggregated keys stable and
// matches METRIC_KEYS-style grouping used by the tuning delta report.
var metricFields = []string{
	"boundary_f1_20ms",
	"boundary_f1_50ms",
	"iou_a",
	"iou_b",
	"iou_any",
	"micro_ipus_per_min",
	"switches_per_min",
	"rapid_alternations_per_min",
}

func metricValue(row ItemResult, field string) float64 {
	switch field {
	case "boundary_f1_20ms":
		return row.BoundaryF120ms
	case "boundary_f1_50ms":
		return row.BoundaryF150ms
	case "iou_a":
		return row.IoUA
	case "iou_b":
		return row.IoUB
	case "iou_any":
		return row.IoUAny
	case "micro_ipus_per_min":
		return row.MicroIPUsPerMin
	case "switches_per_min":
		return row.SwitchesPerMin
	case "rapid_alternations_per_min":
		return row.RapidAlternationsPerM
	default:
		return 0
	}
}

// Aggregate returns the unweighted mean of every metric field across
// results, via gonum's stat.Mean.
func Aggregate(results []ItemResult) map[string]float64 {
	if len(results) == 0 {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(metricFields))

	for _, field := range metricFields {
		values := make([]float64, len(results))
		for i, row := range results {
			values[i] = metricValue(row, field)
		}

		out[field] = stat.Mean(values, nil)
	}

	return out
}

// AggregateByTier groups results by tier and aggregates each group.
func AggregateByTier(results []ItemResult) map[string]map[string]float64 {
	grouped := make(map[string][]ItemResult)
	for _, row := range results {
		grouped[tierOrDefault(row.Tier)] = append(grouped[tierOrDefault(row.Tier)], row)
	}

	out := make(map[string]map[string]float64, len(grouped))
	for tier, rows := range grouped {
		out[tier] = Aggregate(rows)
	}

	return out
}

// Scorecard is the JSON payload written and read for a completed
// evaluation run.
type Scorecard struct {
	Results  []ItemResult                  `json:"results"`
	Summary  map[string]float64            `json:"summary"`
	ByTier   map[string]map[string]float64 `json:"by_tier"`
	Metadata map[string]any                `json:"metadata,omitempty"`
}

// WriteScorecard writes scorecard.json and scorecard.csv under outDir.
func WriteScorecard(results []ItemResult, outDir string, metadata map[string]any) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // output directory, not security-sensitive
		return fmt.Errorf("%w: creating output directory %s: %w", apperr.ErrIO, outDir, err)
	}

	payload := Scorecard{
		Results:  results,
		Summary:  Aggregate(results),
		ByTier:   AggregateByTier(results),
		Metadata: metadata,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding scorecard: %w", apperr.ErrInternal, err)
	}

	if err := os.WriteFile(filepath.Join(outDir, "scorecard.json"), data, 0o644); err != nil { //nolint:gosec // output artifact
		return fmt.Errorf("%w: writing scorecard.json: %w", apperr.ErrIO, err)
	}

	return writeResultsCSV(filepath.Join(outDir, "scorecard.csv"), results)
}

// ReadScorecard reads a scorecard.json payload previously written by
// WriteScorecard.
func ReadScorecard(path string) (Scorecard, error) {
	data, err := os.ReadFile(path) //nolint:gosec // scorecard path is caller-controlled
	if err != nil {
		return Scorecard{}, fmt.Errorf("%w: reading scorecard %s: %w", apperr.ErrIO, path, err)
	}

	var payload Scorecard
	if err := json.Unmarshal(data, &payload); err != nil {
		return Scorecard{}, fmt.Errorf("%w: decoding scorecard %s: %w", apperr.ErrDecode, path, err)
	}

	return payload, nil
}

func resultCSVHeader() []string {
	return []string{
		"id", "tier", "status", "boundary_f1_20ms", "boundary_f1_50ms", "iou_a", "iou_b", "iou_any",
		"micro_ipus_per_min", "switches_per_min", "rapid_alternations", "rapid_alternations_per_min",
	}
}

func resultCSVRow(row ItemResult) []string {
	return []string{
		row.ID,
		row.Tier,
		row.Status,
		formatFloat(row.BoundaryF120ms),
		formatFloat(row.BoundaryF150ms),
		formatFloat(row.IoUA),
		formatFloat(row.IoUB),
		formatFloat(row.IoUAny),
		formatFloat(row.MicroIPUsPerMin),
		formatFloat(row.SwitchesPerMin),
		strconv.Itoa(row.RapidAlternations),
		formatFloat(row.RapidAlternationsPerM),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeResultsCSV(path string, results []ItemResult) error {
	f, err := os.Create(path) //nolint:gosec // path is caller-controlled output location
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", apperr.ErrIO, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(results) > 0 {
		if err := w.Write(resultCSVHeader()); err != nil {
			return fmt.Errorf("%w: writing csv header: %w", apperr.ErrIO, err)
		}

		for _, row := range results {
			if err := w.Write(resultCSVRow(row)); err != nil {
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
