package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/evalharness"
	"github.com/farcloser/turnmark/internal/runner"
)

var errEvalArgs = errors.New("expected exactly one argument: manifest path")

func evalCommand() *cli.Command {
	flags := append([]cli.Flag{
		configFlag(),
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory for per-item artifacts and scorecard.json"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Evidence-track cache directory"},
	}, tuningFlags()...)

	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate a manifest of audio items and write a scorecard",
		ArgsUsage: "<manifest.json>",
		Flags:     flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: %w: got %d", apperr.ErrConfig, errEvalArgs, cmd.NArg())
			}

			rc, err := newRunContext(cmd)
			if err != nil {
				return err
			}
			defer rc.finish() //nolint:errcheck // best-effort log flush

			manifestPath := cmd.Args().First()
			outDir := config.ResolveOutDir(cmd.String("out"), rc.cfg, "eval-out")
			cacheDir := cmd.String("cache-dir")
			if cacheDir == "" {
				cacheDir = rc.cfg.Paths.CacheDir
			}
			tuning := resolvedTuning(cmd, rc.cfg)

			results, err := runEvalManifest(rc, manifestPath, outDir, cacheDir, tuning)
			if err != nil {
				return err
			}

			fmt.Println(rc.rep.RenderSummary())

			if rc.rep.HasFailures() {
				return fmt.Errorf("%w: %s", apperr.ErrPipeline, "eval failed, see summary above")
			}

			fmt.Printf("scored %d items, scorecard written to %s\n", len(results), outDir)

			return nil
		},
	}
}

// runEvalManifest loads the manifest and evaluates every item as an
// independent runner step, so each item's outcome is tracked through the
// reporter's per-step MarkOK/MarkFailed bookkeeping (progress output,
// failure summary) rather than evalharness.EvaluateManifest's silent
// per-item status rows.
func runEvalManifest(
	rc *runContext, manifestPath, outDir, cacheDir string, tuning decode.TuningParams,
) ([]evalharness.ItemResult, error) {
	items, err := evalharness.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	pl := runner.New(rc.rep, rc.eh)

	for _, item := range items {
		item := item

		itemOutDir := filepath.Join(outDir, item.ID)

		if err := pl.Add(item.ID, func() (any, error) {
			return evalharness.EvaluateItem(item, itemOutDir, cacheDir, &tuning)
		}, nil, map[string]any{"tier": item.Tier}); err != nil {
			return nil, err
		}
	}

	stepResults, err := pl.Run()
	if err != nil {
		return nil, err
	}

	results := make([]evalharness.ItemResult, 0, len(items))

	for _, item := range items {
		out, ok := stepResults[item.ID]
		if !ok {
			results = append(results, evalharness.ItemResult{ID: item.ID, Tier: item.Tier, Status: evalharness.StatusFailed})
			continue
		}

		results = append(results, out.(evalharness.ItemResult))
	}

	if err := evalharness.WriteScorecard(results, outDir, map[string]any{"run_id": rc.runID}); err != nil {
		return nil, err
	}

	return results, nil
}
