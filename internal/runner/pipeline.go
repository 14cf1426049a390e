package runner

import (
	"fmt"
	"sort"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/reporter"
)

// StepFunc is a unit of pipeline work. Its return value, if any, is
// collected into Pipeline.Run's result map under the step's name.
type StepFunc func() (any, error)

type stepDef struct {
	name    string
	fn      StepFunc
	deps    []string
	context map[string]any
}

// Pipeline is a dependency-aware step runner: a step runs only once every
// dependency has completed OK, is skipped if any dependency failed or was
// itself skipped, and the run continues with independent steps unless the
// reporter's mode is debug, in which case the first failure halts
// execution immediately.
type Pipeline struct {
	rep   *reporter.Reporter
	eh    config.ErrorHandling
	steps map[string]stepDef
}

// New returns an empty Pipeline reporting through rep under policy eh.
func New(rep *reporter.Reporter, eh config.ErrorHandling) *Pipeline {
	return &Pipeline{rep: rep, eh: eh, steps: make(map[string]stepDef)}
}

// Add registers a named step with optional dependencies and logging
// context. Returns apperr.ErrInternal if name was already registered.
func (p *Pipeline) Add(name string, fn StepFunc, deps []string, context map[string]any) error {
	if _, exists := p.steps[name]; exists {
		return fmt.Errorf("%w: duplicate step name %q", apperr.ErrInternal, name)
	}

	p.steps[name] = stepDef{name: name, fn: fn, deps: deps, context: context}
	return nil
}

// Run executes the pipeline in dependency order, returning the return
// values of steps that completed OK. Skipped and failed steps are absent
// from the result map. Returns apperr.ErrInternal if the step graph
// cannot make progress (a cycle, or a dependency naming an undefined
// step).
func (p *Pipeline) Run() (map[string]any, error) {
	results := make(map[string]any)
	remaining := make(map[string]struct{}, len(p.steps))
	decided := make(map[string]struct{}, len(p.steps))

	for name := range p.steps {
		remaining[name] = struct{}{}
	}

	maxFailuresReached := func() bool {
		if p.eh.Mode != config.ModeRun {
			return false
		}
		return p.eh.MaxFailures > 0 && p.rep.FailuresCount() >= p.eh.MaxFailures
	}

	skipAllRemaining := func(causedBy string) {
		names := sortedKeys(remaining)
		for _, n := range names {
			if p.rep.Status(n) == "" {
				p.rep.MarkSkipped(n, causedBy, p.steps[n].context)
			}
		}
	}

	for len(remaining) > 0 {
		progressed := false

		if maxFailuresReached() {
			skipAllRemaining("max_failures")
			break
		}

		for _, name := range sortedKeys(remaining) {
			sdef := p.steps[name]

			if !allDecided(sdef.deps, decided) {
				continue
			}

			if badDep, ok := firstBadDep(sdef.deps, p.rep); ok {
				p.rep.MarkSkipped(name, badDep, sdef.context)
				delete(remaining, name)
				decided[name] = struct{}{}
				progressed = true

				if maxFailuresReached() {
					skipAllRemaining("max_failures")
					remaining = map[string]struct{}{}
				}
				continue
			}

			out, err := sdef.fn()
			if err != nil {
				p.rep.MarkFailed(name, err, sdef.context)
				if p.eh.Mode == config.ModeDebug {
					return results, err
				}
			} else {
				p.rep.MarkOK(name)
				results[name] = out
			}

			delete(remaining, name)
			decided[name] = struct{}{}
			progressed = true

			if maxFailuresReached() {
				skipAllRemaining("max_failures")
				remaining = map[string]struct{}{}
				break
			}
		}

		if !progressed && len(remaining) > 0 {
			return results, fmt.Errorf("%w: pipeline could not make progress (cycle or undefined deps); remaining: %v",
				apperr.ErrInternal, sortedKeys(remaining))
		}
	}

	return results, nil
}

func allDecided(deps []string, decided map[string]struct{}) bool {
	for _, d := range deps {
		if _, ok := decided[d]; !ok {
			return false
		}
	}
	return true
}

func firstBadDep(deps []string, rep *reporter.Reporter) (string, bool) {
	for _, d := range deps {
		if !rep.OK(d) {
			return d, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
