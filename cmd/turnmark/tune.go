package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/decode"
	"github.com/farcloser/turnmark/internal/evalharness"
)

func tuneCommand() *cli.Command {
	flags := append([]cli.Flag{
		configFlag(),
		&cli.StringFlag{Name: "manifest", Usage: "Path to the evaluation manifest (required)"},
		&cli.StringFlag{Name: "baseline", Usage: "Path to the baseline scorecard.json to compare against (required)"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "tune-out", Usage: "Output directory for per-candidate runs and leaderboard"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Evidence-track cache directory"},
		&cli.BoolFlag{Name: "grid", Usage: "Sweep the fixed four-point tuning grid instead of a single candidate"},
	}, tuningFlags()...)

	return &cli.Command{
		Name:  "tune",
		Usage: "Sweep decoder tuning candidates against a manifest and rank them against a baseline scorecard",
		Flags: flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			for _, name := range []string{"manifest", "baseline"} {
				if cmd.String(name) == "" {
					return fmt.Errorf("%w: missing required flag --%s", apperr.ErrConfig, name)
				}
			}

			rc, err := newRunContext(cmd)
			if err != nil {
				return err
			}
			defer rc.finish() //nolint:errcheck // best-effort log flush

			baseline, err := evalharness.ReadScorecard(cmd.String("baseline"))
			if err != nil {
				return err
			}

			candidates := candidateSet(cmd, rc)

			outDir := cmd.String("out")
			cacheDir := cmd.String("cache-dir")
			if cacheDir == "" {
				cacheDir = rc.cfg.Paths.CacheDir
			}

			rows, err := sweepCandidates(rc, cmd.String("manifest"), cmd.String("baseline"), outDir, cacheDir, baseline, candidates)
			if err != nil {
				return err
			}

			if err := evalharness.WriteLeaderboard(rows, outDir); err != nil {
				return err
			}

			fmt.Println(rc.rep.RenderSummary())

			if rc.rep.HasFailures() {
				return fmt.Errorf("%w: %s", apperr.ErrPipeline, "tune failed, see summary above")
			}

			printLeaderboard(rows)

			for _, row := range rows {
				if row.Failed {
					return fmt.Errorf("%w: guardrail failure for %s, see its delta.json", apperr.ErrPipeline, row.Candidate)
				}
			}

			return nil
		},
	}
}

func candidateSet(cmd *cli.Command, rc *runContext) []decode.TuningParams {
	if cmd.Bool("grid") {
		return evalharness.GridCandidates()
	}

	return []decode.TuningParams{resolvedTuning(cmd, rc.cfg)}
}

func sweepCandidates(
	rc *runContext, manifestPath, baselinePath, outDir, cacheDir string,
	baseline evalharness.Scorecard, candidates []decode.TuningParams,
) ([]evalharness.LeaderboardRow, error) {
	items, err := evalharness.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	rows := make([]evalharness.LeaderboardRow, 0, len(candidates))

	for i, candidate := range candidates {
		name := fmt.Sprintf("candidate-%02d", i)
		candidateOutDir := filepath.Join(outDir, name)

		row, err := evaluateCandidate(rc, items, candidateOutDir, cacheDir, baseline, baselinePath, name, candidate)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func evaluateCandidate(
	rc *runContext, items []evalharness.ManifestItem, outDir, cacheDir string,
	baseline evalharness.Scorecard, baselinePath, name string, candidate decode.TuningParams,
) (evalharness.LeaderboardRow, error) {
	// EvaluateManifest isolates per-item failures as "failed" rows rather
	// than returning an error; an error here means the candidate's whole
	// batch couldn't run (e.g. the output directory couldn't be created).
	results, err := evalharness.EvaluateManifest(items, outDir, cacheDir, &candidate)
	if err != nil {
		rc.rep.MarkFailed(name, err, map[string]any{"params": evalharness.ParamsDict(candidate)})
		return evalharness.LeaderboardRow{Candidate: name, Failed: true, Params: evalharness.ParamsDict(candidate)}, nil
	}

	if err := evalharness.WriteScorecard(results, outDir, map[string]any{"run_id": rc.runID, "candidate": name}); err != nil {
		return evalharness.LeaderboardRow{}, err
	}

	current := evalharness.Scorecard{Results: results, Summary: evalharness.Aggregate(results), ByTier: evalharness.AggregateByTier(results)}

	report, err := evalharness.ComputeDeltaReport(baseline, current, evalharness.ParamsDict(candidate), baselinePath)
	if err != nil {
		return evalharness.LeaderboardRow{}, err
	}

	if err := evalharness.WriteDeltaReport(report, outDir); err != nil {
		return evalharness.LeaderboardRow{}, err
	}

	rc.rep.MarkOK(name)

	return evalharness.LeaderboardRow{
		Candidate:                name,
		Failed:                   report.Failed,
		HardMicroIPUsPerMinDelta: report.TierDelta["hard"]["micro_ipus_per_min"],
		EasyBoundaryF120msDelta:  report.TierDelta["easy"]["boundary_f1_20ms"],
		SwitchesPerMinDelta:      report.OverallDelta["switches_per_min"],
		Params:                   evalharness.ParamsDict(candidate),
	}, nil
}

func printLeaderboard(rows []evalharness.LeaderboardRow) {
	for _, row := range rows {
		fmt.Printf(
			"%-16s failed=%-5t hard_micro_delta=%+.3f easy_boundary_delta=%+.3f switches_delta=%+.3f\n",
			row.Candidate, row.Failed, row.HardMicroIPUsPerMinDelta, row.EasyBoundaryF120msDelta, row.SwitchesPerMinDelta,
		)
	}
}
