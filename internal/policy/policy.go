// Package policy decides whether a completed item is auto-approved or left
// for manual review. The decision is pure so it can be tested without the
// store.
package policy

import "curator/internal/activity"

// Action is the outcome of an auto-apply decision.
type Action int

const (
	// LeaveForReview keeps the item in the queue awaiting user review.
	LeaveForReview Action = iota
	// AutoApprove approves the item and schedules retirement after the
	// settle delay.
	AutoApprove
)

func (a Action) String() string {
	switch a {
	case AutoApprove:
		return "auto_approve"
	default:
		return "leave_for_review"
	}
}

// Decide returns AutoApprove exactly when both auto-apply flags are
// enabled and the item has just reached completed with both changes
// already applied and no review action recorded yet.
func Decide(autoMove, autoRename bool, item activity.Item) Action {
	if !autoMove || !autoRename {
		return LeaveForReview
	}
	if item.Status != activity.StatusCompleted {
		return LeaveForReview
	}
	if item.UserAction != activity.ActionPending {
		return LeaveForReview
	}
	if !item.AutoMoveApplied || !item.AutoRenameApplied {
		return LeaveForReview
	}
	return AutoApprove
}
