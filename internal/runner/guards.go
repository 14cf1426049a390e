// Package runner provides a dependency-aware pipeline step executor and
// the guard helpers it is built from.
package runner

import (
	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/reporter"
)

// Step runs fn under the error-handling policy in eh, recording the
// outcome on rep. In debug mode a failure is returned to the caller; in
// run mode it is recorded and suppressed so the caller can continue.
func Step(name string, rep *reporter.Reporter, eh config.ErrorHandling, context map[string]any, fn func() error) error {
	if err := fn(); err != nil {
		rep.MarkFailed(name, err, context)
		if eh.Mode == config.ModeDebug {
			return err
		}
		return nil
	}

	rep.MarkOK(name)
	return nil
}

// Guard runs fn under the error-handling policy in eh and returns its
// result, or def on failure (recorded on rep). In debug mode the error is
// returned instead of suppressed.
func Guard[T any](name string, rep *reporter.Reporter, eh config.ErrorHandling, context map[string]any, def T, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err != nil {
		rep.MarkFailed(name, err, context)
		if eh.Mode == config.ModeDebug {
			return def, err
		}
		return def, nil
	}

	rep.MarkOK(name)
	return result, nil
}
