// Package materializer turns oracle suggestions into filesystem changes.
// It performs immediate renames/moves when automation is enabled at
// completion time, and finishes any remaining changes when an approved
// item retires from the queue.
package materializer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"curator/internal/activity"
	"curator/internal/fsops"
	"curator/internal/logging"
	"curator/internal/services"
)

// Materializer applies suggested names and folders to files on disk.
type Materializer struct {
	logger *slog.Logger
}

// New constructs a Materializer.
func New(logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Materializer{logger: logger.With(logging.String(logging.FieldComponent, "materializer"))}
}

// ApplyAuto performs the enabled automatic changes immediately after a
// suggestion arrives, before the item is shown for review. It returns the
// item with FilePath and the applied flags updated. Changes that fail
// leave the item reviewable with the error recorded instead of failing
// the batch.
func (m *Materializer) ApplyAuto(item activity.Item, autoMove, autoRename bool) activity.Item {
	path := item.FilePath

	if autoRename && strings.TrimSpace(item.SuggestedName) != "" {
		target := filepath.Join(filepath.Dir(path), sanitizedName(item))
		if target != path {
			target, err := m.moveUnique(path, target)
			if err != nil {
				m.logger.Warn("auto rename failed; leaving original name",
					logging.String(logging.FieldItemID, item.ID),
					logging.String(logging.FieldFilePath, path),
					logging.Error(err),
				)
				item.ErrorMessage = "rename failed: " + err.Error()
			} else {
				path = target
				item.AutoRenameApplied = true
			}
		} else {
			item.AutoRenameApplied = true
		}
	}

	if autoMove && strings.TrimSpace(item.SuggestedFolder) != "" {
		target := filepath.Join(item.SuggestedFolder, filepath.Base(path))
		if target != path {
			target, err := m.moveUnique(path, target)
			if err != nil {
				m.logger.Warn("auto move failed; leaving file in place",
					logging.String(logging.FieldItemID, item.ID),
					logging.String(logging.FieldFilePath, path),
					logging.Error(err),
				)
				item.ErrorMessage = "move failed: " + err.Error()
			} else {
				path = target
				item.AutoMoveApplied = true
			}
		} else {
			item.AutoMoveApplied = true
		}
	}

	item.FilePath = path
	return item
}

// Apply finishes the outstanding changes for an approved item during
// retirement. Parts already performed at completion time are skipped;
// each remaining part uses the item's final (edited or suggested) value.
func (m *Materializer) Apply(ctx context.Context, item activity.Item) (activity.Item, error) {
	if err := ctx.Err(); err != nil {
		return item, err
	}
	path := item.FilePath

	if !item.AutoRenameApplied {
		if name := strings.TrimSpace(item.FinalName()); name != "" {
			target := filepath.Join(filepath.Dir(path), fsops.SanitizeName(name, item.OriginalName))
			if target != path {
				moved, err := m.moveUnique(path, target)
				if err != nil {
					return item, services.Wrap(services.ErrFilesystem, "retiring", "rename file", "Failed to rename file", err)
				}
				path = moved
			}
		}
	}

	if !item.AutoMoveApplied {
		if folder := strings.TrimSpace(item.FinalFolder()); folder != "" {
			target := filepath.Join(folder, filepath.Base(path))
			if target != path {
				moved, err := m.moveUnique(path, target)
				if err != nil {
					return item, services.Wrap(services.ErrFilesystem, "retiring", "move file", "Failed to move file", err)
				}
				path = moved
			}
		}
	}

	item.FilePath = path
	m.logger.Debug("materialized approved item",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldFilePath, path),
	)
	return item, nil
}

// moveUnique moves src to target, deflecting to a numbered sibling when
// the target already exists.
func (m *Materializer) moveUnique(src, target string) (string, error) {
	resolved, err := fsops.UniquePath(target)
	if err != nil {
		return "", err
	}
	if err := fsops.MoveFile(src, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

func sanitizedName(item activity.Item) string {
	return fsops.SanitizeName(item.SuggestedName, item.OriginalName)
}
