// Package apperr defines the sentinel error taxonomy shared across
// turnmark's packages, wrapped the way github.com/farcloser/primordium/fault
// wraps its own sentinels: fmt.Errorf("%w: %w", apperr.ErrX, cause).
package apperr

import "errors"

var (
	// ErrConfig marks missing/invalid CLI arguments, missing out_dir, or
	// malformed config. Surfaces to the user with a non-zero exit.
	ErrConfig = errors.New("configuration error")

	// ErrValidation marks evidence shape/semantics/length/finite-value
	// violations raised at construction time or by fusion.
	ErrValidation = errors.New("validation error")

	// ErrDecode marks bad score/transition/initial-distribution shapes
	// passed to the decoder.
	ErrDecode = errors.New("decode error")

	// ErrIO marks missing audio/reference files. Handled by the
	// evaluation harness as an item-level failure; never aborts a batch.
	ErrIO = errors.New("io error")

	// ErrPipeline marks a failed run: a failed step in run/eval/tune, or a
	// guardrail failure in tune. Reported after artifacts are written;
	// causes a non-zero exit.
	ErrPipeline = errors.New("pipeline guardrail error")

	// ErrInternal marks a fatal logic error (cycle or undefined pipeline
	// step dependency). Aborts the process.
	ErrInternal = errors.New("internal error")
)
