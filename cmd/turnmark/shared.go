package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/reporter"
)

// configFlag and tuningFlags are shared across every subcommand that
// touches the pipeline.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "config",
		Usage: "Path to turnmark.yaml",
		Value: "turnmark.yaml",
	}
}

func tuningFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "speaker-switch-penalty", Usage: "Override tuning.speaker_switch_penalty"},
		&cli.Float64Flag{Name: "leak-entry-bias", Usage: "Override tuning.leak_entry_bias"},
		&cli.Float64Flag{Name: "ovl-transition-cost", Usage: "Override tuning.ovl_transition_cost"},
	}
}

// resolvedTuning merges config-file defaults with CLI flag overrides; a
// flag that was never set leaves the config-file (or package default)
// value untouched.
func resolvedTuning(cmd *cli.Command, f config.File) decode.TuningParams {
	params := decode.TuningParams{
		SpeakerSwitchPenalty: f.Tuning.SpeakerSwitchPenalty,
		LeakEntryBias:        f.Tuning.LeakEntryBias,
		OvlTransitionCost:    f.Tuning.OvlTransitionCost,
	}

	if params == (decode.TuningParams{}) {
		params = decode.DefaultTuningParams()
	}

	if cmd.IsSet("speaker-switch-penalty") {
		params.SpeakerSwitchPenalty = cmd.Float64("speaker-switch-penalty")
	}

	if cmd.IsSet("leak-entry-bias") {
		params.LeakEntryBias = cmd.Float64("leak-entry-bias")
	}

	if cmd.IsSet("ovl-transition-cost") {
		params.OvlTransitionCost = cmd.Float64("ovl-transition-cost")
	}

	return params
}

// runContext bundles the per-invocation logging/reporting state every
// subcommand needs, and the cleanup callers must defer.
type runContext struct {
	cfg    config.File
	eh     config.ErrorHandling
	rep    *reporter.Reporter
	runID  string
	close  func() error
}

func newRunContext(cmd *cli.Command) (*runContext, error) {
	f, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	eh := config.ErrorHandlingFromEnv()

	runID, err := reporter.NewRunID()
	if err != nil {
		return nil, err
	}

	logger, events, closeLog, err := reporter.NewRunLogger(eh, runID)
	if err != nil {
		return nil, err
	}

	rep := reporter.New(eh, logger, events, runID)

	return &runContext{cfg: f, eh: eh, rep: rep, runID: runID, close: closeLog}, nil
}

func (rc *runContext) finish() error {
	if err := rc.close(); err != nil {
		return fmt.Errorf("%w: closing run log: %w", apperr.ErrIO, err)
	}

	return nil
}
