package decode_test

import (
	"testing"

	"github.com/farcloser/turnmark/internal/decode"
)

func TestStateStringAndIndex(t *testing.T) {
	for i, name := range []string{"SIL", "A", "B", "OVL", "LEAK"} {
		if decode.State(i).String() != name {
			t.Fatalf("got %s, want %s", decode.State(i).String(), name)
		}

		if decode.StateIndex(name) != i {
			t.Fatalf("got index %d, want %d", decode.StateIndex(name), i)
		}

		if decode.StateName(i) != name {
			t.Fatalf("got name %s, want %s", decode.StateName(i), name)
		}
	}
}

func TestStateIndexUnknown(t *testing.T) {
	if decode.StateIndex("nope") != -1 {
		t.Fatal("expected -1 for unknown state name")
	}

	if decode.StateName(99) != "" {
		t.Fatal("expected empty string for out-of-range index")
	}
}
