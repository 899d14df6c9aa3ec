// Package processor drives a batch of file paths through the suggestion
// oracle one at a time, reporting per-file state transitions and batch
// progress through a callback. It never mutates the activity store
// directly; callers feed its events into the store.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"curator/internal/activity"
	"curator/internal/logging"
	"curator/internal/oracle"
	"curator/internal/services"
)

// Event describes one per-file state transition. Each file produces a
// processing event before its oracle call and a completed event after the
// oracle responds. Current is updated only on completed events and never
// regresses; Total is fixed for the whole run.
type Event struct {
	Status          activity.Status
	FilePath        string
	OriginalName    string
	OriginalFolder  string
	SuggestedName   string
	SuggestedFolder string
	Summary         string
	AutoMove        bool
	AutoRename      bool
	Current         int
	Total           int
}

// Callback receives processor events. It is invoked from the Run
// goroutine; implementations decide their own synchronization.
type Callback func(Event)

// Processor is the sequential suggestion pipeline. At most one oracle call
// is in flight at a time, so events for file i are fully ordered before
// those for file i+1 begin.
type Processor struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// New constructs a processor over the given oracle.
func New(o oracle.Oracle, logger *slog.Logger) *Processor {
	return &Processor{
		oracle: o,
		logger: logging.NewComponentLogger(logger, "processor"),
	}
}

// Run processes each path in order. On oracle failure the batch halts:
// already-completed items keep their events, the failing and remaining
// files produce no completed event, and the error is returned to the
// caller.
func (p *Processor) Run(ctx context.Context, paths []string, autoMove, autoRename bool, cb Callback) error {
	if len(paths) == 0 {
		return services.Wrap(services.ErrValidation, "suggesting", "validate inputs", "no file paths provided", nil)
	}
	if cb == nil {
		return services.Wrap(services.ErrValidation, "suggesting", "validate inputs", "callback required", nil)
	}

	total := len(paths)
	current := 0

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		cb(Event{
			Status:         activity.StatusProcessing,
			FilePath:       path,
			OriginalName:   filepath.Base(path),
			OriginalFolder: filepath.Dir(path),
			AutoMove:       autoMove,
			AutoRename:     autoRename,
			Current:        current,
			Total:          total,
		})

		suggestion, err := p.oracle.Suggest(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Error("suggestion failed; halting batch",
				logging.String(logging.FieldFilePath, path),
				logging.Int("completed", current),
				logging.Int("total", total),
				logging.Error(err),
			)
			return services.Wrap(services.ErrOracle, "suggesting", "request suggestion", path, err)
		}

		current++
		cb(Event{
			Status:          activity.StatusCompleted,
			FilePath:        path,
			OriginalName:    filepath.Base(path),
			OriginalFolder:  filepath.Dir(path),
			SuggestedName:   suggestion.Rename,
			SuggestedFolder: suggestion.Move,
			Summary:         suggestion.Summary,
			AutoMove:        autoMove,
			AutoRename:      autoRename,
			Current:         current,
			Total:           total,
		})
	}

	return nil
}
