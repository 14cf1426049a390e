package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/farcloser/turnmark/internal/config"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	f, err := config.Load("/nonexistent/turnmark.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Paths.OutDir != "" {
		t.Fatalf("expected zero value, got %+v", f)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "turnmark.yaml")

	content := "paths:\n  out_dir: /tmp/out\n  cache_dir: /tmp/cache\ntuning:\n  speaker_switch_penalty: -7.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Paths.OutDir != "/tmp/out" || f.Paths.CacheDir != "/tmp/cache" {
		t.Fatalf("got %+v", f.Paths)
	}

	if f.Tuning.SpeakerSwitchPenalty != -7.5 {
		t.Fatalf("got %v", f.Tuning.SpeakerSwitchPenalty)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "turnmark.yaml")

	if err := os.WriteFile(path, []byte("paths: [this is not a mapping"), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestResolveOutDirPrecedence(t *testing.T) {
	f := config.File{Paths: config.Paths{OutDir: "/from/config"}}

	if got := config.ResolveOutDir("/from/cli", f, "/default"); got != "/from/cli" {
		t.Fatalf("expected CLI override to win, got %s", got)
	}

	if got := config.ResolveOutDir("", f, "/default"); got != "/from/config" {
		t.Fatalf("expected config value, got %s", got)
	}

	if got := config.ResolveOutDir("", config.File{}, "/default"); got != "/default" {
		t.Fatalf("expected default, got %s", got)
	}
}
