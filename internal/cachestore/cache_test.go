package cachestore_test

import (
	"path/filepath"
	"testing"

	"github.com/farcloser/turnmark/internal/cachestore"
)

func TestKeyIsDeterministic(t *testing.T) {
	params := map[string]any{"hop_s": 0.01, "vad_mode": 2}

	k1, err := cachestore.Key("a.wav", "/abs/a.wav", 1000, 12345, "vad", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	k2, err := cachestore.Key("a.wav", "/abs/a.wav", 1000, 12345, "vad", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if k1 != k2 {
		t.Fatalf("expected deterministic key, got %s vs %s", k1, k2)
	}
}

func TestKeyChangesWithParams(t *testing.T) {
	k1, _ := cachestore.Key("a.wav", "/abs/a.wav", 1000, 1, "vad", map[string]any{"vad_mode": 2})
	k2, _ := cachestore.Key("a.wav", "/abs/a.wav", 1000, 1, "vad", map[string]any{"vad_mode": 3})

	if k1 == k2 {
		t.Fatal("expected different keys for different params")
	}
}

func TestDisabledStoreAlwaysMisses(t *testing.T) {
	store := cachestore.NewStore("")

	if err := store.Put("key", ".json", map[string]any{"values": []float64{1, 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]any

	ok, err := store.Get("key", ".json", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok {
		t.Fatal("expected disabled store to always miss")
	}
}

func TestStorePutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := cachestore.NewStore(dir)

	type payload struct {
		Values []float64 `json:"values"`
	}

	key, _ := cachestore.Key("a.wav", "/abs/a.wav", 10, 1, "energy_rms", nil)

	if err := store.Put(key, ".json", payload{Values: []float64{0.1, 0.2, 0.3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out payload

	ok, err := store.Get(key, ".json", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ok {
		t.Fatal("expected cache hit")
	}

	if len(out.Values) != 3 || out.Values[1] != 0.2 {
		t.Fatalf("got %v", out.Values)
	}
}

func TestStoreWritesAtomicallyViaTempRename(t *testing.T) {
	dir := t.TempDir()
	store := cachestore.NewStore(dir)

	key, _ := cachestore.Key("a.wav", "/abs/a.wav", 10, 1, "energy_rms", nil)

	if err := store.Put(key, ".json", map[string]any{"v": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files after a successful put, found %v", matches)
	}

	if !store.Has(key, ".json") {
		t.Fatal("expected final cache file to exist after rename")
	}
}
