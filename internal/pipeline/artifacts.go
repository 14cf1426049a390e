package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/textgrid"
)

// segmentDTO is a decode.Segment's JSON shape: Label is written by name,
// not by its integer State value, so artifacts stay readable and stable
// across any future reordering of the base state set.
type segmentDTO struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

func toSegmentDTOs(segments []decode.Segment) []segmentDTO {
	out := make([]segmentDTO, len(segments))
	for i, s := range segments {
		out[i] = segmentDTO{Start: s.Start, End: s.End, Label: s.Label.String()}
	}

	return out
}

type statesArtifact struct {
	HopSeconds float64  `json:"hop_seconds"`
	NFrames    int      `json:"n_frames"`
	States     []string `json:"states"`
}

type ipusArtifact struct {
	A    []segmentDTO `json:"a"`
	B    []segmentDTO `json:"b"`
	OVL  []segmentDTO `json:"ovl"`
	Leak []segmentDTO `json:"leak"`
}

// writeArtifacts writes states.json, ipus.json, and turns.TextGrid under
// outDir, creating it if needed.
func writeArtifacts(outDir string, result Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // output directory, not security-sensitive
		return fmt.Errorf("%w: creating output directory %s: %w", apperr.ErrIO, outDir, err)
	}

	stateNames := make([]string, len(result.States))
	for i, s := range result.States {
		stateNames[i] = s.String()
	}

	if err := writeJSON(filepath.Join(outDir, "states.json"), statesArtifact{
		HopSeconds: result.HopSeconds,
		NFrames:    result.NFrames,
		States:     stateNames,
	}); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(outDir, "ipus.json"), ipusArtifact{
		A:    toSegmentDTOs(result.IPUs[LabelA]),
		B:    toSegmentDTOs(result.IPUs[LabelB]),
		OVL:  toSegmentDTOs(result.IPUs[LabelOVL]),
		Leak: toSegmentDTOs(result.IPUs[LabelLeak]),
	}); err != nil {
		return err
	}

	if err := textgrid.Write(
		filepath.Join(outDir, "turns.TextGrid"),
		result.IPUs[LabelA], result.IPUs[LabelB], result.IPUs[LabelOVL], result.IPUs[LabelLeak],
	); err != nil {
		return err
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", apperr.ErrInternal, path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // output artifact, not security-sensitive
		return fmt.Errorf("%w: writing %s: %w", apperr.ErrIO, path, err)
	}

	return nil
}
