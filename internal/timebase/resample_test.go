package timebase_test

import (
	"math"
	"testing"

	"github.com/farcloser/turnmark/internal/timebase"
)

func TestUpsampleHoldLast(t *testing.T) {
	values := []float64{1, 2, 3}
	out := timebase.UpsampleHoldLast(values, 1, 2)
	want := []float64{1, 1, 2, 2, 3, 3}

	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestDownsampleMean(t *testing.T) {
	values := []float64{1, 1, 3, 3}
	out, err := timebase.Downsample(values, 1, 2, timebase.AggMean)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1, 3}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestDownsampleRequiresDivisibility(t *testing.T) {
	if _, err := timebase.Downsample([]float64{1, 2, 3}, 1, 2, timebase.AggMean); err == nil {
		t.Fatal("expected error for non-divisible length")
	}
}

func TestUpsampleThenDownsampleRoundTrips(t *testing.T) {
	values := []float64{0.1, 0.4, 0.9, 0.2}
	up := timebase.UpsampleHoldLast(values, 1, 4)

	down, err := timebase.Downsample(up, 1, 4, timebase.AggMean)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range values {
		if math.Abs(down[i]-values[i]) > 1e-9 {
			t.Fatalf("index %d: got %v want %v", i, down[i], values[i])
		}
	}
}

func TestResampleRejectsNonIntegerRatio(t *testing.T) {
	if _, err := timebase.Resample([]float64{1, 2, 3}, 1, 0.01, 0.015, timebase.AggMean); err == nil {
		t.Fatal("expected error for non-integer hop ratio")
	}
}

func TestDownsampleMax(t *testing.T) {
	values := []float64{1, 5, 2, -1}
	out, err := timebase.Downsample(values, 1, 2, timebase.AggMax)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{5, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestResampleToCoarserGridDownsamples(t *testing.T) {
	// srcHop=0.01 -> targetHop=0.02: coarser grid, two source frames collapse
	// into one output frame via averaging, not repetition.
	values := []float64{1, 1, 3, 3}
	out, err := timebase.Resample(values, 1, 0.01, 0.02, timebase.AggMean)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v want %v", out, want)
	}

	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestResampleToFinerGridUpsamples(t *testing.T) {
	// srcHop=0.02 -> targetHop=0.01: finer grid, each source frame is held
	// across the extra output frames rather than averaged away.
	values := []float64{1, 2, 3}
	out, err := timebase.Resample(values, 1, 0.02, 0.01, timebase.AggMean)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1, 1, 2, 2, 3, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v want %v", out, want)
	}

	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestResample2D(t *testing.T) {
	// two columns, three frames
	values := []float64{1, 10, 2, 20, 3, 30}
	out := timebase.UpsampleHoldLast(values, 2, 2)

	want := []float64{1, 10, 1, 10, 2, 20, 2, 20, 3, 30, 3, 30}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}
