// Package audioio decodes raw PCM bytes into per-channel float64 sample
// buffers and frames them onto an arbitrary hop. Audio file I/O itself
// (container demuxing, format probing) is an external collaborator,
// handled by internal/integration/ffmpeg and internal/integration/ffprobe;
// this package only interprets the raw samples they hand back.
package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/primordium/fault"
	"github.com/farcloser/turnmark/internal/apperr"
)

// BitDepth is the number of bits per PCM sample.
type BitDepth uint

// Supported bit depths.
const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// Normalization divisors for signed PCM of each supported depth.
const (
	maxValue16 = 32768.0
	maxValue24 = 8388608.0
	maxValue32 = 2147483648.0
)

// Format describes the layout of a raw PCM byte stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   BitDepth
}

// Samples holds decoded, per-channel float64 samples in [-1, 1] and the
// format they were decoded under.
type Samples struct {
	Format   Format
	Channels [][]float64 // Channels[c][i] is channel c's i-th sample
}

// NumFrames returns the number of per-channel samples.
func (s Samples) NumFrames() int {
	if len(s.Channels) == 0 {
		return 0
	}

	return len(s.Channels[0])
}

// Mono returns a single-channel view: the first channel if mono, or the
// average of all channels otherwise.
func (s Samples) Mono() []float64 {
	if len(s.Channels) == 1 {
		return s.Channels[0]
	}

	n := s.NumFrames()
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		var sum float64
		for _, ch := range s.Channels {
			sum += ch[i]
		}

		out[i] = sum / float64(len(s.Channels))
	}

	return out
}

func normalizer(depth BitDepth) (float64, error) {
	switch depth {
	case Depth16:
		return maxValue16, nil
	case Depth24:
		return maxValue24, nil
	case Depth32:
		return maxValue32, nil
	default:
		return 0, fmt.Errorf("%w: unsupported bit depth %d", apperr.ErrValidation, depth)
	}
}

// Decode reads raw little-endian signed PCM from r and returns per-channel
// float64 samples normalized to [-1, 1].
func Decode(r io.Reader, format Format) (Samples, error) {
	if format.Channels <= 0 {
		return Samples{}, fmt.Errorf("%w: channels must be positive, got %d", apperr.ErrValidation, format.Channels)
	}

	maxVal, err := normalizer(format.BitDepth)
	if err != nil {
		return Samples{}, err
	}

	bytesPerSample := int(format.BitDepth / 8)
	frameSize := bytesPerSample * format.Channels

	channels := make([][]float64, format.Channels)
	for c := range channels {
		channels[c] = make([]float64, 0, 1<<16)
	}

	buf := make([]byte, frameSize*4096)

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			complete := (n / frameSize) * frameSize
			data := buf[:complete]

			for i := 0; i < len(data); i += frameSize {
				for ch := 0; ch < format.Channels; ch++ {
					offset := i + ch*bytesPerSample

					var sample float64

					switch format.BitDepth {
					case Depth16:
						sample = float64(int16(binary.LittleEndian.Uint16(data[offset:]))) / maxVal
					case Depth24:
						raw := int32(data[offset]) | int32(data[offset+1])<<8 | int32(data[offset+2])<<16
						if raw&0x800000 != 0 {
							raw |= ^0xFFFFFF
						}

						sample = float64(raw) / maxVal
					case Depth32:
						sample = float64(int32(binary.LittleEndian.Uint32(data[offset:]))) / maxVal
					}

					channels[ch] = append(channels[ch], sample)
				}
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return Samples{}, fmt.Errorf("%w: %w", fault.ErrReadFailure, readErr)
		}
	}

	return Samples{Format: format, Channels: channels}, nil
}

// FrameRMS splits a single channel into non-overlapping hop-second
// windows and returns the RMS of each. The trailing partial window, if
// any, is dropped (matching the canonical-grid framing used elsewhere in
// the pipeline).
func FrameRMS(channel []float64, sampleRate int, hopSeconds float64) []float64 {
	hopSamples := int(float64(sampleRate)*hopSeconds + 0.5)
	if hopSamples <= 0 {
		return nil
	}

	n := len(channel) / hopSamples
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		var sumSq float64

		for _, v := range channel[i*hopSamples : (i+1)*hopSamples] {
			sumSq += v * v
		}

		out[i] = sqrt(sumSq / float64(hopSamples))
	}

	return out
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}

	return math.Sqrt(v)
}
