// Package organize drives a full organization session: it feeds watched
// files through the suggestion processor, mirrors progress into the
// activity store, performs enabled automatic changes, and lets the
// auto-apply policy approve items that need no review.
package organize

import (
	"context"
	"log/slog"
	"time"

	"curator/internal/activity"
	"curator/internal/config"
	"curator/internal/fsops"
	"curator/internal/logging"
	"curator/internal/materializer"
	"curator/internal/notifications"
	"curator/internal/policy"
	"curator/internal/processor"
	"curator/internal/settings"
)

// Runner owns one organization session over a batch of files.
type Runner struct {
	cfg      *config.Config
	store    *activity.Store
	proc     *processor.Processor
	material *materializer.Materializer
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs a Runner. A nil notifier disables notifications.
func New(
	cfg *config.Config,
	store *activity.Store,
	proc *processor.Processor,
	material *materializer.Materializer,
	notifier notifications.Service,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		proc:     proc,
		material: material,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "organize"),
	}
}

// RetirementNotifier returns a store retirement hook that reports every
// approved item landing in history through the notification service.
// Rejected retirements stay quiet.
func RetirementNotifier(notifier notifications.Service, logger *slog.Logger) func(activity.HistoryRecord) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "organize")
	return func(record activity.HistoryRecord) {
		if notifier == nil || record.Action != activity.ActionApproved {
			return
		}
		if err := notifier.NotifyItemOrganized(context.Background(), record.FinalName, record.FinalFolder); err != nil {
			logger.Warn("item organized notification failed",
				logging.String(logging.FieldItemID, record.ID),
				logging.Error(err),
			)
		}
	}
}

// CollectFiles gathers every file currently sitting in the watched
// folders, in folder order.
func CollectFiles(store *settings.Store) ([]string, error) {
	var paths []string
	for _, dir := range store.WatchedFolders() {
		items, err := fsops.ReadFolder(dir)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			paths = append(paths, item.Path)
		}
	}
	return paths, nil
}

// Run processes paths sequentially, populating the activity store as
// suggestions arrive. It returns once every file has a suggestion or the
// batch halts on a processing failure; review and retirement continue
// through the store afterwards.
func (r *Runner) Run(ctx context.Context, paths []string) error {
	autoMove := r.cfg.Organizer.AutoMove
	autoRename := r.cfg.Organizer.AutoRename

	startedAt := time.Now()
	if r.notifier != nil {
		if err := r.notifier.NotifyQueueStarted(ctx, len(paths)); err != nil {
			r.logger.Warn("queue started notification failed", logging.Error(err))
		}
	}

	ids := make(map[string]string, len(paths))
	processed := 0
	runErr := r.proc.Run(ctx, paths, autoMove, autoRename, func(event processor.Event) {
		switch event.Status {
		case activity.StatusProcessing:
			item, err := r.store.Add(activity.Item{
				FilePath:       event.FilePath,
				OriginalName:   event.OriginalName,
				OriginalFolder: event.OriginalFolder,
			})
			if err != nil {
				r.logger.Warn("failed to enqueue item",
					logging.String(logging.FieldFilePath, event.FilePath),
					logging.Error(err),
				)
				return
			}
			ids[event.FilePath] = item.ID
		case activity.StatusCompleted:
			id, ok := ids[event.FilePath]
			if !ok {
				return
			}
			r.completeItem(id, event)
			processed++
		}
		r.store.SetProgress(event.Current, event.Total)
	})

	if r.notifier != nil {
		failed := len(paths) - processed
		if err := r.notifier.NotifyQueueCompleted(ctx, processed, failed, time.Since(startedAt)); err != nil {
			r.logger.Warn("queue completed notification failed", logging.Error(err))
		}
		if runErr != nil && ctx.Err() == nil {
			if err := r.notifier.NotifyError(ctx, runErr, "organizing"); err != nil {
				r.logger.Warn("error notification failed", logging.Error(err))
			}
		}
	}
	return runErr
}

// completeItem applies enabled automatic changes, records the suggestion
// on the queue item, and hands the result to the auto-apply policy.
func (r *Runner) completeItem(id string, event processor.Event) {
	item, ok := r.store.Get(id)
	if !ok {
		return
	}
	item.SuggestedName = event.SuggestedName
	item.SuggestedFolder = event.SuggestedFolder
	item.Summary = event.Summary

	if r.material != nil {
		item = r.material.ApplyAuto(item, event.AutoMove, event.AutoRename)
	}

	completed := activity.StatusCompleted
	r.store.Update(id, activity.Update{
		Status:            &completed,
		FilePath:          &item.FilePath,
		SuggestedName:     &item.SuggestedName,
		SuggestedFolder:   &item.SuggestedFolder,
		Summary:           &item.Summary,
		AutoRenameApplied: &item.AutoRenameApplied,
		AutoMoveApplied:   &item.AutoMoveApplied,
		ErrorMessage:      &item.ErrorMessage,
	})

	item, ok = r.store.Get(id)
	if !ok {
		return
	}
	if policy.Decide(event.AutoMove, event.AutoRename, item) == policy.AutoApprove {
		r.logger.Info("auto-approving fully applied item",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldFilePath, item.FilePath),
		)
		r.store.Approve(id)
	}
}
