package runner_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/reporter"
	"github.com/farcloser/turnmark/internal/runner"
)

func newReporter(eh config.ErrorHandling) *reporter.Reporter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reporter.New(eh, logger, nil, "testrun")
}

func TestPipelineRunsInDependencyOrder(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())
	p := runner.New(rep, config.DefaultErrorHandling())

	var order []string

	_ = p.Add("load", func() (any, error) {
		order = append(order, "load")
		return "audio", nil
	}, nil, nil)

	_ = p.Add("extract", func() (any, error) {
		order = append(order, "extract")
		return "features", nil
	}, []string{"load"}, nil)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "load" || order[1] != "extract" {
		t.Fatalf("expected load before extract, got %v", order)
	}

	if results["load"] != "audio" || results["extract"] != "features" {
		t.Fatalf("got %+v", results)
	}
}

func TestPipelineSkipsDependentsOfFailedStep(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())
	p := runner.New(rep, config.DefaultErrorHandling())

	_ = p.Add("load", func() (any, error) {
		return nil, errors.New("boom")
	}, nil, nil)

	_ = p.Add("extract", func() (any, error) {
		t.Fatal("extract should not run when load fails")
		return nil, nil
	}, []string{"load"}, nil)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rep.Failed("load") {
		t.Fatal("expected load to be failed")
	}

	if !rep.Skipped("extract") {
		t.Fatal("expected extract to be skipped")
	}

	if _, ok := results["extract"]; ok {
		t.Fatal("expected no result for skipped step")
	}
}

func TestPipelineDebugModeReturnsFirstFailure(t *testing.T) {
	eh := config.DefaultErrorHandling()
	eh.Mode = config.ModeDebug

	rep := newReporter(eh)
	p := runner.New(rep, eh)

	boom := errors.New("boom")
	_ = p.Add("load", func() (any, error) {
		return nil, boom
	}, nil, nil)

	_, err := p.Run()
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to surface, got %v", err)
	}
}

func TestPipelineMaxFailuresStopsScheduling(t *testing.T) {
	eh := config.DefaultErrorHandling()
	eh.MaxFailures = 1

	rep := newReporter(eh)
	p := runner.New(rep, eh)

	_ = p.Add("a", func() (any, error) { return nil, errors.New("boom") }, nil, nil)
	_ = p.Add("b", func() (any, error) { return "ok", nil }, nil, nil)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "a" and "b" are independent and both are in the first sorted pass,
	// but once max_failures is reached nothing further is scheduled.
	if rep.Status("b") != reporter.StatusSkipped && rep.Status("b") != reporter.StatusOK {
		t.Fatalf("expected b to be resolved one way or another, got %q", rep.Status("b"))
	}

	if len(results) > 1 {
		t.Fatalf("expected at most one successful result, got %+v", results)
	}
}

func TestPipelineRejectsDuplicateStepName(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())
	p := runner.New(rep, config.DefaultErrorHandling())

	_ = p.Add("load", func() (any, error) { return nil, nil }, nil, nil)
	if err := p.Add("load", func() (any, error) { return nil, nil }, nil, nil); err == nil {
		t.Fatal("expected error for duplicate step name")
	}
}

func TestPipelineDetectsUndefinedDependency(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())
	p := runner.New(rep, config.DefaultErrorHandling())

	_ = p.Add("extract", func() (any, error) { return nil, nil }, []string{"nonexistent"}, nil)

	if _, err := p.Run(); err == nil {
		t.Fatal("expected error for undefined dependency")
	}
}
