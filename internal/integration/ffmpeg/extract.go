package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/turnmark/internal/integration/binary"
)

const (
	name    = "ffmpeg"
	timeout = 5 * time.Minute
)

// PCMSpec describes the raw PCM layout ffmpeg should decode into.
type PCMSpec struct {
	SampleRate int
	Channels   int
	BitDepth   int // 16, 24, or 32
}

// Extract decodes path's audio into raw little-endian signed PCM matching
// spec, writing it to output.
func Extract(ctx context.Context, path string, output io.Writer, spec PCMSpec) error {
	slog.Debug("ffmpeg.Extract", "path", path, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // path is operator-provided input audio, not attacker-controlled
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "quiet",
		"-i", path,
		"-f", rawFormatFlag(spec.BitDepth),
		"-acodec", rawCodecName(spec.BitDepth),
		"-ar", itoa(spec.SampleRate),
		"-ac", itoa(spec.Channels),
		"-",
	)

	cmd.Stdout = output

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.Extract", "path", path, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.Extract", "path", path, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return nil
}
