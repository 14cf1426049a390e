// Package textgrid writes and parses Praat long-text-format interval
// tiers, used both as pipeline output and as a reference-label format.
package textgrid

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
)

// TierNames is the fixed, ordered tier layout this package reads/writes.
var TierNames = [4]string{"SpeakerA", "SpeakerB", "Overlap", "Leak"}

func tierBlock(name string, segments []decode.Segment) []string {
	lines := []string{
		`    class = "IntervalTier"`,
		fmt.Sprintf(`    name = %q`, name),
	}

	xmin, xmax := 0.0, 0.0
	for _, s := range segments {
		if s.End > xmax {
			xmax = s.End
		}
	}

	lines = append(lines,
		fmt.Sprintf("    xmin = %s", formatFloat(xmin)),
		fmt.Sprintf("    xmax = %s", formatFloat(xmax)),
		fmt.Sprintf("    intervals: size = %d", len(segments)),
	)

	for i, s := range segments {
		lines = append(lines,
			fmt.Sprintf("    intervals [%d]:", i+1),
			fmt.Sprintf("        xmin = %s", formatFloat(s.Start)),
			fmt.Sprintf("        xmax = %s", formatFloat(s.End)),
			fmt.Sprintf("        text = %q", s.Label.String()),
		)
	}

	return lines
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Write writes a four-tier Praat TextGrid: SpeakerA, SpeakerB, Overlap,
// Leak, in that order.
func Write(path string, speakerA, speakerB, overlap, leak []decode.Segment) error {
	f, err := os.Create(path) //nolint:gosec // path is caller-controlled output location
	if err != nil {
		return fmt.Errorf("%w: creating textgrid %s: %w", apperr.ErrIO, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	allSegments := [][]decode.Segment{speakerA, speakerB, overlap, leak}

	xmax := 0.0
	for _, segs := range allSegments {
		for _, s := range segs {
			if s.End > xmax {
				xmax = s.End
			}
		}
	}

	fmt.Fprintln(w, `File type = "ooTextFile"`)
	fmt.Fprintln(w, `Object class = "TextGrid"`)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "xmin = %s\n", formatFloat(0))
	fmt.Fprintf(w, "xmax = %s\n", formatFloat(xmax))
	fmt.Fprintln(w, "tiers? <exists>")
	fmt.Fprintf(w, "size = %d\n", len(TierNames))
	fmt.Fprintln(w, "item []:")

	for i, name := range TierNames {
		fmt.Fprintf(w, "    item [%d]:\n", i+1)

		for _, line := range tierBlock(name, allSegments[i]) {
			fmt.Fprintln(w, line)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: writing textgrid %s: %w", apperr.ErrIO, path, err)
	}

	return nil
}

// Parse reads a Praat TextGrid and returns the interval segments grouped
// by tier name. Only non-empty-text intervals are returned.
func Parse(path string) (map[string][]decode.Segment, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled input location
	if err != nil {
		return nil, fmt.Errorf("%w: opening textgrid %s: %w", apperr.ErrIO, path, err)
	}
	defer f.Close()

	out := make(map[string][]decode.Segment)

	var currentTier string

	var xmin, xmax float64

	var haveXmin, haveXmax bool

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "name ="):
			currentTier = unquote(strings.TrimSpace(strings.SplitN(line, "=", 2)[1]))
			if _, ok := out[currentTier]; !ok {
				out[currentTier] = nil
			}
		case strings.HasPrefix(line, "xmin ="):
			xmin, _ = strconv.ParseFloat(strings.TrimSpace(strings.SplitN(line, "=", 2)[1]), 64)
			haveXmin = true
		case strings.HasPrefix(line, "xmax ="):
			xmax, _ = strconv.ParseFloat(strings.TrimSpace(strings.SplitN(line, "=", 2)[1]), 64)
			haveXmax = true
		case strings.HasPrefix(line, "text ="):
			text := unquote(strings.TrimSpace(strings.SplitN(line, "=", 2)[1]))
			if text != "" && haveXmin && haveXmax && currentTier != "" {
				out[currentTier] = append(out[currentTier], decode.Segment{
					Start: xmin,
					End:   xmax,
					Label: decode.State(decode.StateIndex(text)),
				})
			}

			haveXmin, haveXmax = false, false
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading textgrid %s: %w", apperr.ErrIO, path, err)
	}

	return out, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)

	return s
}
