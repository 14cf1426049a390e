package reporter

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/config"
)

// NewRunID generates a short random identifier for a run, the way
// errors/config.py's resolved_run_id derives one from uuid4().hex[:10].
func NewRunID() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: generating run id: %w", apperr.ErrInternal, err)
	}

	return hex.EncodeToString(buf), nil
}

// EventLogger appends structured JSON lines to a per-run events file, one
// object per call to Write.
type EventLogger struct {
	path  string
	runID string
	mu    sync.Mutex
}

// NewEventLogger returns an EventLogger writing to path. The file and its
// parent directory are created lazily on the first Write.
func NewEventLogger(path, runID string) *EventLogger {
	return &EventLogger{path: path, runID: runID}
}

// Write appends one JSON event line. step and context may be empty/nil.
func (e *EventLogger) Write(event, step, level string, context map[string]any, cause error, message string) error {
	payload := map[string]any{
		"time_utc": time.Now().UTC().Format(time.RFC3339Nano),
		"run_id":   e.runID,
		"event":    event,
		"step":     step,
		"level":    level,
	}

	if message != "" {
		payload["message"] = message
	}

	if len(context) > 0 {
		payload["context"] = context
	}

	if cause != nil {
		payload["exc_msg"] = cause.Error()
	}

	line, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", apperr.ErrInternal, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("%w: creating log dir: %w", apperr.ErrIO, err)
	}

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // run-scoped log file
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", apperr.ErrIO, e.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: writing %s: %w", apperr.ErrIO, e.path, err)
	}

	return nil
}

// NewRunLogger builds a run-scoped *slog.Logger that writes to both stderr
// and a per-run log file under eh.LogDir (or "logs" when unset), plus an
// optional EventLogger when eh.WriteJSONL is set. Nothing here is a
// package-level singleton: each run owns its own logger and file handle.
func NewRunLogger(eh config.ErrorHandling, runID string) (*slog.Logger, *EventLogger, func() error, error) {
	logDir := eh.LogDir
	if logDir == "" {
		logDir = "logs"
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: creating log dir %s: %w", apperr.ErrIO, logDir, err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("run_%s.log", runID))

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // run-scoped log file
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: opening %s: %w", apperr.ErrIO, logPath, err)
	}

	var writer io.Writer = io.MultiWriter(os.Stderr, file)

	level := slog.LevelInfo
	if eh.Mode == config.ModeDebug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("run_id", runID)

	var eventLogger *EventLogger
	if eh.WriteJSONL {
		eventLogger = NewEventLogger(filepath.Join(logDir, fmt.Sprintf("events_%s.jsonl", runID)), runID)
	}

	return logger, eventLogger, file.Close, nil
}
