package audioio_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/farcloser/turnmark/internal/audioio"
)

func encode16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	return buf
}

func TestDecode16BitMono(t *testing.T) {
	raw := encode16([]int16{0, 16384, -16384, 32767})

	samples, err := audioio.Decode(bytes.NewReader(raw), audioio.Format{SampleRate: 16000, Channels: 1, BitDepth: audioio.Depth16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(samples.Channels) != 1 || samples.NumFrames() != 4 {
		t.Fatalf("got %+v", samples)
	}

	if math.Abs(samples.Channels[0][1]-0.5) > 1e-3 {
		t.Fatalf("expected ~0.5, got %v", samples.Channels[0][1])
	}
}

func TestDecode16BitStereoInterleaved(t *testing.T) {
	raw := encode16([]int16{100, -100, 200, -200})

	samples, err := audioio.Decode(bytes.NewReader(raw), audioio.Format{SampleRate: 16000, Channels: 2, BitDepth: audioio.Depth16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if samples.NumFrames() != 2 {
		t.Fatalf("expected 2 frames, got %d", samples.NumFrames())
	}

	if samples.Channels[0][0] <= 0 || samples.Channels[1][0] >= 0 {
		t.Fatalf("channel separation wrong: %+v", samples.Channels)
	}
}

func TestDecodeRejectsUnsupportedDepth(t *testing.T) {
	_, err := audioio.Decode(bytes.NewReader(nil), audioio.Format{SampleRate: 16000, Channels: 1, BitDepth: 8})
	if err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
}

func TestDecodeRejectsNonPositiveChannels(t *testing.T) {
	_, err := audioio.Decode(bytes.NewReader(nil), audioio.Format{SampleRate: 16000, Channels: 0, BitDepth: audioio.Depth16})
	if err == nil {
		t.Fatal("expected error for non-positive channel count")
	}
}

func TestMonoAveragesChannels(t *testing.T) {
	samples := audioio.Samples{Channels: [][]float64{{1, 1}, {-1, 3}}}

	mono := samples.Mono()
	if mono[0] != 0 || mono[1] != 2 {
		t.Fatalf("got %v", mono)
	}
}

func TestFrameRMSConstantSignal(t *testing.T) {
	channel := make([]float64, 1000)
	for i := range channel {
		channel[i] = 0.5
	}

	frames := audioio.FrameRMS(channel, 1000, 0.01)
	if len(frames) != 100 {
		t.Fatalf("expected 100 frames, got %d", len(frames))
	}

	if math.Abs(frames[0]-0.5) > 1e-9 {
		t.Fatalf("expected RMS 0.5, got %v", frames[0])
	}
}

func TestFrameRMSDropsTrailingPartialWindow(t *testing.T) {
	channel := make([]float64, 105)

	frames := audioio.FrameRMS(channel, 1000, 0.01)
	if len(frames) != 10 {
		t.Fatalf("expected 10 complete 10ms frames from 105 samples, got %d", len(frames))
	}
}
