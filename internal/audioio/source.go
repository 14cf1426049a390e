package audioio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/turnmark/internal/integration/ffmpeg"
	"github.com/farcloser/turnmark/internal/integration/ffprobe"
)

// Source is an on-disk audio file, resolved enough to be both decoded and
// used as a cache-key descriptor.
type Source struct {
	Path            string
	AbsPath         string
	Size            int64
	ModTimeUnixNano int64
}

// OpenSource stats path and resolves it to an absolute form, without
// reading its contents.
func OpenSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: statting %s: %w", fault.ErrReadFailure, path, err)
	}

	abs, err := absPath(path)
	if err != nil {
		return Source{}, err
	}

	return Source{
		Path:            path,
		AbsPath:         abs,
		Size:            info.Size(),
		ModTimeUnixNano: info.ModTime().UnixNano(),
	}, nil
}

func absPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", fault.ErrReadFailure)
	}

	if path[0] == '/' {
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return wd + "/" + path, nil
}

// Probe runs ffprobe against the source and returns its resolved audio
// format: sample rate, channel count, and bit depth. Falls back to 16-bit
// depth when the container doesn't report one (common for lossy codecs).
func (s Source) Probe(ctx context.Context) (Format, error) {
	result, err := ffprobe.Probe(ctx, s.Path)
	if err != nil {
		return Format{}, err
	}

	stream, ok := result.AudioStream()
	if !ok {
		return Format{}, fmt.Errorf("%w: no audio stream found in %s", fault.ErrInvalidJSON, s.Path)
	}

	rate, _ := strconv.Atoi(stream.SampleRate)

	depth := Depth16
	if stream.BitsPerSample == 24 {
		depth = Depth24
	} else if stream.BitsPerSample == 32 {
		depth = Depth32
	}

	channels := stream.Channels
	if channels == 0 {
		channels = 1
	}

	return Format{SampleRate: rate, Channels: channels, BitDepth: depth}, nil
}

// Load probes the source, extracts its audio as raw signed little-endian
// PCM via ffmpeg, and decodes it into per-channel float64 samples.
func (s Source) Load(ctx context.Context) (Samples, error) {
	format, err := s.Probe(ctx)
	if err != nil {
		return Samples{}, err
	}

	var stdout bytes.Buffer

	spec := ffmpeg.PCMSpec{SampleRate: format.SampleRate, Channels: format.Channels, BitDepth: int(format.BitDepth)}
	if err := ffmpeg.Extract(ctx, s.Path, &stdout, spec); err != nil {
		return Samples{}, err
	}

	return Decode(&stdout, format)
}
