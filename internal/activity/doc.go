// Package activity holds the review pipeline's authoritative state: the
// live queue of items awaiting suggestions and review, and the immutable
// history of retired items. Terminal actions retire items after a settle
// delay through cancellable scheduled tasks guarded by per-item generation
// counters, so a superseded action can never mis-retire an item.
package activity
