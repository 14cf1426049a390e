// Package config loads turnmark.yaml and the error-handling environment
// variables that govern pipeline/eval run behavior.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/farcloser/turnmark/internal/apperr"
)

// Paths holds filesystem locations resolved from config plus CLI overrides.
type Paths struct {
	OutDir   string `yaml:"out_dir"`
	CacheDir string `yaml:"cache_dir"`
	LogDir   string `yaml:"log_dir"`
}

// Tuning holds default decoder tuning knobs, overridable per run.
type Tuning struct {
	SpeakerSwitchPenalty float64 `yaml:"speaker_switch_penalty"`
	LeakEntryBias        float64 `yaml:"leak_entry_bias"`
	OvlTransitionCost    float64 `yaml:"ovl_transition_cost"`
}

// File is the parsed shape of turnmark.yaml.
type File struct {
	Paths  Paths  `yaml:"paths"`
	Tuning Tuning `yaml:"tuning"`
}

// Load reads and parses a turnmark.yaml config file. A missing file is not
// an error; Load returns the zero File so callers fall back to defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-provided config location
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}

		return File{}, fmt.Errorf("%w: reading %s: %w", apperr.ErrConfig, path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: parsing %s: %w", apperr.ErrConfig, path, err)
	}

	return f, nil
}

// ResolveOutDir returns the effective output directory: a non-empty CLI
// override takes precedence over the config file's paths.out_dir, which
// takes precedence over def.
func ResolveOutDir(cliOverride string, f File, def string) string {
	if cliOverride != "" {
		return cliOverride
	}

	if f.Paths.OutDir != "" {
		return f.Paths.OutDir
	}

	return def
}
