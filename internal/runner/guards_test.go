package runner_test

import (
	"errors"
	"testing"

	"github.com/farcloser/turnmark/internal/config"
	"github.com/farcloser/turnmark/internal/runner"
)

func TestStepMarksOKOnSuccess(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())

	err := runner.Step("load", rep, config.DefaultErrorHandling(), nil, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rep.OK("load") {
		t.Fatal("expected load to be OK")
	}
}

func TestStepRunModeSuppressesFailure(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())
	boom := errors.New("boom")

	err := runner.Step("load", rep, config.DefaultErrorHandling(), nil, func() error {
		return boom
	})
	if err != nil {
		t.Fatalf("expected run mode to suppress the error, got %v", err)
	}

	if !rep.Failed("load") {
		t.Fatal("expected load to be recorded as failed")
	}
}

func TestStepDebugModeReturnsFailure(t *testing.T) {
	eh := config.DefaultErrorHandling()
	eh.Mode = config.ModeDebug

	rep := newReporter(eh)
	boom := errors.New("boom")

	err := runner.Step("load", rep, eh, nil, func() error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to surface in debug mode, got %v", err)
	}
}

func TestGuardReturnsDefaultOnFailure(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())

	result, err := runner.Guard("load", rep, config.DefaultErrorHandling(), "default", func() (string, error) {
		return "", errors.New("boom")
	})
	if err != nil {
		t.Fatalf("expected run mode to suppress the error, got %v", err)
	}

	if result != "default" {
		t.Fatalf("expected default value, got %q", result)
	}

	if !rep.Failed("load") {
		t.Fatal("expected load to be recorded as failed")
	}
}

func TestGuardReturnsValueOnSuccess(t *testing.T) {
	rep := newReporter(config.DefaultErrorHandling())

	result, err := runner.Guard("load", rep, config.DefaultErrorHandling(), "default", func() (string, error) {
		return "audio", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != "audio" {
		t.Fatalf("got %q", result)
	}
}
