package activity

import (
	"errors"
	"strings"
	"time"
)

// Status represents the pipeline lifecycle of a queue item.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// UserAction records the explicit human review outcome, independent of the
// pipeline status. It only becomes meaningful once an item reaches
// StatusCompleted.
type UserAction string

const (
	ActionPending  UserAction = "pending"
	ActionApproved UserAction = "approved"
	ActionRejected UserAction = "rejected"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusCompleted,
	StatusApproved,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Item represents one file's journey through the review pipeline.
type Item struct {
	ID             string
	FilePath       string
	OriginalName   string
	OriginalFolder string

	// Populated once the oracle responds; empty while processing.
	SuggestedName   string
	SuggestedFolder string
	Summary         string

	Status Status

	// Fixed at completion time, recording whether the policy already
	// performed the rename/move (as opposed to merely suggesting it).
	// Once true, the corresponding suggestion is immutable.
	AutoRenameApplied bool
	AutoMoveApplied   bool

	// User overrides; they take precedence over the suggestion for the
	// eventual history record.
	EditedName   string
	EditedFolder string

	UserAction   UserAction
	ErrorMessage string
	CreatedAt    time.Time
}

// FinalName resolves the name that retirement will record: the user edit
// when present, otherwise the suggestion. Once the rename was already
// auto-applied the suggestion is immutable and edits are ignored.
func (i Item) FinalName() string {
	if i.EditedName != "" && !i.AutoRenameApplied {
		return i.EditedName
	}
	return i.SuggestedName
}

// FinalFolder resolves the folder that retirement will record.
func (i Item) FinalFolder() string {
	if i.EditedFolder != "" && !i.AutoMoveApplied {
		return i.EditedFolder
	}
	return i.SuggestedFolder
}

// CanEditName reports whether a name edit can still change the outcome.
func (i Item) CanEditName() bool {
	return i.Status == StatusCompleted && !i.AutoRenameApplied
}

// CanEditFolder reports whether a folder edit can still change the outcome.
func (i Item) CanEditFolder() bool {
	return i.Status == StatusCompleted && !i.AutoMoveApplied
}

// IsTerminal reports whether the user action has reached a terminal value.
func (a UserAction) IsTerminal() bool {
	return a == ActionApproved || a == ActionRejected
}

// HistoryRecord is the immutable record created when an item leaves the
// queue. Records are only appended (most-recent-first) and cleared in bulk.
type HistoryRecord struct {
	ID             string
	OriginalName   string
	FinalName      string
	OriginalFolder string
	FinalFolder    string
	Summary        string
	Action         UserAction
	CreatedAt      time.Time
	RetiredAt      time.Time
}

// ErrPendingRetirement is returned when a conversion to history is
// attempted while the item's user action is still pending. The pipeline
// always records an explicit approve or reject before retiring.
var ErrPendingRetirement = errors.New("cannot retire item with pending user action")

// HistoryRecord converts the item into its immutable history form.
// Returns ErrPendingRetirement when the user action is not terminal; a nil
// receiver yields a zero record and no error so defensive callers can
// treat it as a no-op.
func (i *Item) HistoryRecord(retiredAt time.Time) (HistoryRecord, error) {
	if i == nil {
		return HistoryRecord{}, nil
	}
	if !i.UserAction.IsTerminal() {
		return HistoryRecord{}, ErrPendingRetirement
	}
	return HistoryRecord{
		ID:             i.ID,
		OriginalName:   i.OriginalName,
		FinalName:      i.FinalName(),
		OriginalFolder: i.OriginalFolder,
		FinalFolder:    i.FinalFolder(),
		Summary:        i.Summary,
		Action:         i.UserAction,
		CreatedAt:      i.CreatedAt,
		RetiredAt:      retiredAt,
	}, nil
}
