// Package monitor sequences one poll: fetch, diff, persist, notify,
// publish. Fetch failure aborts before anything is written; notify and
// publish failures only degrade the run.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lpmonitor/internal/diff"
	"lpmonitor/internal/model"
	"lpmonitor/internal/report"
	"lpmonitor/internal/storage"
)

// Source provides fresh position rows.
type Source interface {
	FetchRows(ctx context.Context) ([]map[string]interface{}, error)
}

// Notifier delivers the formatted alert.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Publisher pushes the data directory to version control.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// HistorySink is an optional secondary record of each capture.
type HistorySink interface {
	UpsertSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Deps wires the Runner's collaborators. Notifier, Publisher, and History
// may be nil; Source and Store are required.
type Deps struct {
	Source    Source
	Store     storage.Store
	Notifier  Notifier
	Publisher Publisher
	History   HistorySink
	Logger    *zap.Logger
	Now       func() time.Time
}

// RunSummary reports what one run did.
type RunSummary struct {
	RunID     string
	Positions int
	Skipped   int
	Added     int
	Removed   int
	Modified  int
	Notified  bool
}

// Runner executes the monitoring pipeline once per invocation.
type Runner struct {
	deps Deps
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{deps: deps}
}

// Run executes one monitoring pass. It returns an error only for fatal
// stages (load, fetch, persist); notification and publishing degrade to
// warnings because the data has already been captured.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	if r.deps.Source == nil {
		return RunSummary{}, fmt.Errorf("source is nil")
	}
	if r.deps.Store == nil {
		return RunSummary{}, fmt.Errorf("store is nil")
	}

	runID := uuid.NewString()
	logger := r.deps.Logger.With(zap.String("run_id", runID))
	summary := RunSummary{RunID: runID}

	prev, found, err := r.deps.Store.LoadLatest()
	if err != nil {
		return summary, fmt.Errorf("load previous snapshot: %w", err)
	}
	if !found {
		logger.Info("no previous snapshot, first run")
	}

	rows, err := r.deps.Source.FetchRows(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch positions: %w", err)
	}

	positions, skipped := model.NormalizeRows(rows)
	summary.Positions = len(positions)
	summary.Skipped = skipped
	if skipped > 0 {
		logger.Warn("skipped malformed rows", zap.Int("skipped", skipped))
	}
	logger.Info("positions fetched", zap.Int("count", len(positions)))

	now := r.deps.Now()
	changes := diff.Diff(prev.Positions, positions, now)
	summary.Added = len(changes.Added)
	summary.Removed = len(changes.Removed)
	summary.Modified = len(changes.Modified)

	snap := model.NewSnapshot(positions, now)
	if err := r.deps.Store.SaveLatest(snap); err != nil {
		return summary, fmt.Errorf("save snapshot: %w", err)
	}
	if err := r.deps.Store.AppendHistory(snap); err != nil {
		return summary, fmt.Errorf("append history: %w", err)
	}

	if r.deps.History != nil {
		if err := r.deps.History.UpsertSnapshot(ctx, snap); err != nil {
			logger.Warn("history sink failed", zap.Error(err))
		}
	}

	if changes.Empty() {
		logger.Info("no changes detected")
	} else if r.deps.Notifier != nil {
		message := report.Format(changes, positions, now)
		if err := r.deps.Notifier.Send(ctx, message); err != nil {
			logger.Warn("notification failed", zap.Error(err))
		} else {
			summary.Notified = true
		}
	}

	if r.deps.Publisher != nil {
		commitMsg := fmt.Sprintf("LP数据更新 %s", now.Format(time.RFC3339))
		if err := r.deps.Publisher.Publish(ctx, commitMsg); err != nil {
			logger.Warn("publish failed", zap.Error(err))
		}
	}

	logger.Info("run complete",
		zap.Int("positions", summary.Positions),
		zap.Int("added", summary.Added),
		zap.Int("removed", summary.Removed),
		zap.Int("modified", summary.Modified),
		zap.Bool("notified", summary.Notified),
	)

	return summary, nil
}
