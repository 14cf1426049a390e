package reporter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/farcloser/turnmark/internal/config"
)

// Reporter is the single source of truth for what happened during a run:
// pipeline steps and harness items report their outcomes here, and the
// runner/harness decide control flow by querying it, not the other way
// around.
type Reporter struct {
	eh     config.ErrorHandling
	logger *slog.Logger
	events *EventLogger
	runID  string

	status  map[string]StepStatus
	records []FailureRecord
}

// New returns a Reporter bound to logger/events for the given run.
func New(eh config.ErrorHandling, logger *slog.Logger, events *EventLogger, runID string) *Reporter {
	return &Reporter{
		eh:     eh,
		logger: logger,
		events: events,
		runID:  runID,
		status: make(map[string]StepStatus),
	}
}

// Status returns the recorded status for a step, or "" if none.
func (r *Reporter) Status(step string) StepStatus {
	return r.status[step]
}

func (r *Reporter) OK(step string) bool      { return r.status[step] == StatusOK }
func (r *Reporter) Failed(step string) bool  { return r.status[step] == StatusFailed }
func (r *Reporter) Skipped(step string) bool { return r.status[step] == StatusSkipped }

// FailuresCount returns the number of steps currently marked failed.
func (r *Reporter) FailuresCount() int {
	n := 0
	for _, s := range r.status {
		if s == StatusFailed {
			n++
		}
	}
	return n
}

// HasFailures reports whether any step has failed.
func (r *Reporter) HasFailures() bool {
	return r.FailuresCount() > 0
}

// MarkOK records a successful step.
func (r *Reporter) MarkOK(step string) {
	r.status[step] = StatusOK
	if r.events != nil {
		_ = r.events.Write("step_ok", step, "INFO", nil, nil, "")
	}
}

// MarkSkipped records a step skipped because one of its dependencies
// failed or was itself skipped.
func (r *Reporter) MarkSkipped(step, causedBy string, context map[string]any) {
	message := fmt.Sprintf("skipped because dependency %q failed or was skipped", causedBy)

	r.status[step] = StatusSkipped
	r.records = append(r.records, FailureRecord{
		StepName:  step,
		Status:    StatusSkipped,
		Message:   message,
		Context:   context,
		CausedBy:  causedBy,
		Timestamp: time.Now().UTC(),
	})

	if r.logger != nil {
		r.logger.Warn("skipping step", "step", step, "caused_by", causedBy)
	}

	if r.events != nil {
		_ = r.events.Write("step_skipped", step, "WARNING", context, nil, message)
	}
}

// MarkFailed records a failed step and its cause.
func (r *Reporter) MarkFailed(step string, cause error, context map[string]any) {
	r.status[step] = StatusFailed
	r.records = append(r.records, FailureRecord{
		StepName:  step,
		Status:    StatusFailed,
		Message:   cause.Error(),
		ExcType:   fmt.Sprintf("%T", cause),
		Context:   context,
		Timestamp: time.Now().UTC(),
	})

	if r.logger != nil {
		r.logger.Error("step failed", "step", step, "error", cause)
	}

	if r.events != nil {
		_ = r.events.Write("step_failed", step, "ERROR", context, cause, "")
	}
}

// RenderSummary renders a human-readable end-of-run summary with per-step
// detail and artifact paths.
func (r *Reporter) RenderSummary() string {
	var okN, failN, skipN int
	for _, s := range r.status {
		switch s {
		case StatusOK:
			okN++
		case StatusFailed:
			failN++
		case StatusSkipped:
			skipN++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run summary (run_id=%s, mode=%s)\n", r.runID, r.eh.Mode)
	fmt.Fprintf(&b, "  OK:   %d\n", okN)
	fmt.Fprintf(&b, "  FAIL: %d\n", failN)
	fmt.Fprintf(&b, "  SKIP: %d\n", skipN)

	if failN+skipN == 0 {
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("\nDetails:\n")

	sorted := make([]FailureRecord, len(r.records))
	copy(sorted, r.records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StepName < sorted[j].StepName })

	for _, rec := range sorted {
		if rec.Status == StatusFailed {
			fmt.Fprintf(&b, "  - FAIL %s: %s: %s\n", rec.StepName, rec.ExcType, rec.Message)
		} else {
			fmt.Fprintf(&b, "  - SKIP %s: %s\n", rec.StepName, rec.Message)
		}
	}

	b.WriteString("\nArtifacts:\n")
	logDir := r.eh.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	fmt.Fprintf(&b, "  - %s/run_%s.log\n", logDir, r.runID)
	if r.eh.WriteJSONL {
		fmt.Fprintf(&b, "  - %s/events_%s.jsonl\n", logDir, r.runID)
	}

	return strings.TrimRight(b.String(), "\n")
}

// ExitCode returns 0 when no step has failed, else 1.
func (r *Reporter) ExitCode() int {
	if r.HasFailures() {
		return 1
	}
	return 0
}
