// Package evalharness runs the pipeline over a manifest of audio items,
// scores each against a reference label sequence, and aggregates the
// per-item metrics into scorecards and tuning delta reports.
package evalharness

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/metrics"
	"github.com/farcloser/turnmark/internal/pipeline"
	"github.com/farcloser/turnmark/internal/textgrid"
)

// ManifestItem describes one evaluation item: either a real audio file
// with an optional reference label file, or a synthetic scenario
// materialized at evaluation time.
type ManifestItem struct {
	ID        string `json:"id"`
	Tier      string `json:"tier"`
	AudioPath string `json:"audio_path,omitempty"`
	RefPath   string `json:"ref_path,omitempty"`
	Scenario  string `json:"scenario,omitempty"`
}

// LoadManifest reads a JSON array of ManifestItem from path.
func LoadManifest(path string) ([]ManifestItem, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest %s: %w", apperr.ErrIO, path, err)
	}

	var items []ManifestItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest %s: %w", apperr.ErrDecode, path, err)
	}

	return items, nil
}

// sortedManifest returns items ordered by (tier, id), matching the
// original's sort key and giving evaluation a deterministic order.
func sortedManifest(items []ManifestItem) []ManifestItem {
	out := append([]ManifestItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}

		return out[i].ID < out[j].ID
	})

	return out
}

// Item statuses recorded in ItemResult.Status.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ItemResult is the metric row produced by EvaluateItem. A failed item
// carries Status "failed" and a zeroed metric set rather than being
// omitted, so a batch always accounts for every manifest item.
type ItemResult struct {
	ID                    string  `json:"id"`
	Tier                  string  `json:"tier"`
	Status                string  `json:"status"`
	BoundaryF120ms        float64 `json:"boundary_f1_20ms"`
	BoundaryF150ms        float64 `json:"boundary_f1_50ms"`
	IoUA                  float64 `json:"iou_a"`
	IoUB                  float64 `json:"iou_b"`
	IoUAny                float64 `json:"iou_any"`
	MicroIPUsPerMin       float64 `json:"micro_ipus_per_min"`
	SwitchesPerMin        float64 `json:"switches_per_min"`
	RapidAlternations     int     `json:"rapid_alternations"`
	RapidAlternationsPerM float64 `json:"rapid_alternations_per_min"`
}

// EvaluateItem runs the pipeline on one manifest item, compares the
// decoded state sequence to a reference (or to itself, when no reference
// is given), and returns the resulting metric row.
func EvaluateItem(item ManifestItem, outDir string, cacheDir string, tuning *decode.TuningParams) (ItemResult, error) {
	opts := pipeline.DefaultOptions()
	opts.OutDir = outDir
	opts.CacheDir = cacheDir
	opts.Tuning = tuning

	var (
		result Result
		err    error
	)

	if item.AudioPath == "" {
		result, err = evaluateSynthetic(item, opts)
	} else {
		result, err = evaluateFile(item, opts)
	}

	if err != nil {
		return ItemResult{}, err
	}

	return scoreResult(item, result)
}

// Result bundles a completed pipeline.Result with the reference states it
// should be compared against.
type Result struct {
	Pipeline   pipeline.Result
	RefStates  []decode.State
}

func evaluateFile(item ManifestItem, opts pipeline.Options) (Result, error) {
	hyp, err := pipeline.Run(context.Background(), item.AudioPath, opts)
	if err != nil {
		return Result{}, err
	}

	if item.RefPath == "" {
		return Result{Pipeline: hyp, RefStates: hyp.States}, nil
	}

	ref, err := loadReferenceStates(item.RefPath, len(hyp.States), hyp.HopSeconds)
	if err != nil {
		return Result{}, err
	}

	return Result{Pipeline: hyp, RefStates: ref}, nil
}

func scoreResult(item ManifestItem, result Result) (ItemResult, error) {
	hyp := result.Pipeline.States
	ref := result.RefStates

	n := len(hyp)
	if len(ref) < n {
		n = len(ref)
	}

	hyp = hyp[:n]
	ref = ref[:n]

	hop := result.Pipeline.HopSeconds

	refBound := metrics.StateBoundaries(ref, hop)
	hypBound := metrics.StateBoundaries(hyp, hop)

	b20 := metrics.ComputeBoundaryF1(refBound, hypBound, 0.02)
	b50 := metrics.ComputeBoundaryF1(refBound, hypBound, 0.05)

	refA, hypA := metrics.LabelMask(ref, decode.A, decode.OVL), metrics.LabelMask(hyp, decode.A, decode.OVL)
	refB, hypB := metrics.LabelMask(ref, decode.B, decode.OVL), metrics.LabelMask(hyp, decode.B, decode.OVL)
	refAny := metrics.LabelMask(ref, decode.A, decode.B, decode.OVL, decode.LEAK)
	hypAny := metrics.LabelMask(hyp, decode.A, decode.B, decode.OVL, decode.LEAK)

	totalDuration := float64(n) * hop

	var allIPUs []decode.Segment
	for _, key := range []string{pipeline.LabelA, pipeline.LabelB, pipeline.LabelOVL, pipeline.LabelLeak} {
		allIPUs = append(allIPUs, result.Pipeline.IPUs[key]...)
	}

	micro := metrics.MicroIPUsPerMin(allIPUs, totalDuration, 0.2)
	switches := metrics.SpeakerSwitchesPerMin(hyp, hop)
	rapid := metrics.RapidAlternations(hyp)

	rapidPerMin := 0.0
	if minutes := totalDuration / 60.0; minutes > 1e-9 {
		rapidPerMin = float64(rapid) / minutes
	}

	return ItemResult{
		ID:                    item.ID,
		Tier:                  tierOrDefault(item.Tier),
		Status:                StatusOK,
		BoundaryF120ms:        b20.F1,
		BoundaryF150ms:        b50.F1,
		IoUA:                  metrics.FramewiseIoU(refA, hypA),
		IoUB:                  metrics.FramewiseIoU(refB, hypB),
		IoUAny:                metrics.FramewiseIoU(refAny, hypAny),
		MicroIPUsPerMin:       micro,
		SwitchesPerMin:        switches,
		RapidAlternations:     rapid,
		RapidAlternationsPerM: rapidPerMin,
	}, nil
}

func tierOrDefault(tier string) string {
	if tier == "" {
		return "unknown"
	}

	return tier
}

// EvaluateManifest evaluates every item in a manifest, in (tier, id)
// order, writing each item's pipeline artifacts under its own
// subdirectory of outDir. An item that fails to evaluate (missing audio
// or reference file, decode error, ...) is recorded as a zeroed row with
// Status "failed" rather than aborting the rest of the batch.
func EvaluateManifest(items []ManifestItem, outDir string, cacheDir string, tuning *decode.TuningParams) ([]ItemResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // output directory, not security-sensitive
		return nil, fmt.Errorf("%w: creating output directory %s: %w", apperr.ErrIO, outDir, err)
	}

	results := make([]ItemResult, 0, len(items))

	for _, item := range sortedManifest(items) {
		itemOutDir := filepath.Join(outDir, item.ID)

		row, err := EvaluateItem(item, itemOutDir, cacheDir, tuning)
		if err != nil {
			row = ItemResult{ID: item.ID, Tier: tierOrDefault(item.Tier), Status: StatusFailed}
		}

		results = append(results, row)
	}

	return results, nil
}

// loadReferenceStates reads a reference label sequence from a .json file
// (a plain array of state names) or a .textgrid file (converted via
// segmentsToStates). The original's .npy format has no Go equivalent in
// this module's all-JSON artifact convention, so it is not supported.
func loadReferenceStates(path string, nFrames int, hopSeconds float64) ([]decode.State, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".json"):
		return loadJSONStates(path)
	case strings.HasSuffix(lower, ".textgrid"):
		return loadTextGridStates(path, nFrames, hopSeconds)
	default:
		return nil, fmt.Errorf("%w: unsupported reference format %s", apperr.ErrValidation, path)
	}
}

func loadJSONStates(path string) ([]decode.State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // reference path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("%w: reading reference %s: %w", apperr.ErrIO, path, err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: decoding reference %s: %w", apperr.ErrDecode, path, err)
	}

	return parseStateNames(names)
}

func loadTextGridStates(path string, nFrames int, hopSeconds float64) ([]decode.State, error) {
	segments, err := textgrid.Parse(path)
	if err != nil {
		return nil, err
	}

	return segmentsToStates(segments, nFrames, hopSeconds), nil
}

func parseStateNames(names []string) ([]decode.State, error) {
	out := make([]decode.State, len(names))

	for i, name := range names {
		idx := decode.StateIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: unknown reference state %q", apperr.ErrValidation, name)
		}

		out[i] = decode.State(idx)
	}

	return out, nil
}

// segmentsToStates rasterizes a tier-keyed segment map into a per-frame
// state sequence, in the same layering order as the original: Leak and
// Overlap always win, A/B only fill frames still at SIL.
func segmentsToStates(segments map[string][]decode.Segment, nFrames int, hopSeconds float64) []decode.State {
	states := make([]decode.State, nFrames)

	paint := func(tier string, label decode.State, onlyIfSilence bool) {
		for _, seg := range segments[tier] {
			start := int(seg.Start / hopSeconds)
			end := int(seg.End / hopSeconds)

			if end > nFrames {
				end = nFrames
			}

			for i := start; i < end; i++ {
				if i < 0 || i >= nFrames {
					continue
				}

				if onlyIfSilence && states[i] != decode.SIL {
					continue
				}

				states[i] = label
			}
		}
	}

	paint(textgrid.TierNames[3], decode.LEAK, false)
	paint(textgrid.TierNames[2], decode.OVL, false)
	paint(textgrid.TierNames[0], decode.A, true)
	paint(textgrid.TierNames[1], decode.B, true)

	return states
}
