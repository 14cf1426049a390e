package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/pipeline"
	"github.com/farcloser/turnmark/internal/runner"
)

var errRunArgs = errors.New("expected exactly one argument: audio file path")

func runCommand() *cli.Command {
	flags := append([]cli.Flag{
		configFlag(),
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory for states.json/ipus.json/turns.TextGrid"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Evidence-track cache directory"},
	}, tuningFlags()...)

	return &cli.Command{
		Name:      "run",
		Usage:     "Decode one audio file into a turn-taking state sequence",
		ArgsUsage: "<file>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: %w: got %d", apperr.ErrConfig, errRunArgs, cmd.NArg())
			}

			rc, err := newRunContext(cmd)
			if err != nil {
				return err
			}
			defer rc.finish() //nolint:errcheck // best-effort log flush

			outDir := config.ResolveOutDir(cmd.String("out"), rc.cfg, "out")
			tuning := resolvedTuning(cmd, rc.cfg)

			opts := pipeline.DefaultOptions()
			opts.OutDir = outDir
			opts.CacheDir = cmd.String("cache-dir")
			if opts.CacheDir == "" {
				opts.CacheDir = rc.cfg.Paths.CacheDir
			}
			opts.Tuning = &tuning

			filePath := cmd.Args().First()

			var result pipeline.Result

			if err := runner.Step("decode", rc.rep, rc.eh, map[string]any{"file": filePath}, func() error {
				var stepErr error
				result, stepErr = pipeline.Run(ctx, filePath, opts)
				return stepErr
			}); err != nil {
				return err
			}

			fmt.Println(rc.rep.RenderSummary())

			if rc.rep.HasFailures() {
				return fmt.Errorf("%w: %s", apperr.ErrPipeline, "run failed, see summary above")
			}

			return printRunResult(result)
		},
	}
}

func printRunResult(result pipeline.Result) error {
	summary := map[string]any{
		"audio_path":  result.AudioPath,
		"hop_seconds": result.HopSeconds,
		"n_frames":    result.NFrames,
		"out_dir":     result.OutDir,
		"ipu_counts": map[string]int{
			pipeline.LabelA:    len(result.IPUs[pipeline.LabelA]),
			pipeline.LabelB:    len(result.IPUs[pipeline.LabelB]),
			pipeline.LabelOVL:  len(result.IPUs[pipeline.LabelOVL]),
			pipeline.LabelLeak: len(result.IPUs[pipeline.LabelLeak]),
		},
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("%w: encoding run summary: %w", apperr.ErrInternal, err)
	}

	return nil
}
