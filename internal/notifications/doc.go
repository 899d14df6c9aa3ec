// Package notifications delivers organize pipeline events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured
// in config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-category toggles let users silence queue progress,
// organization results, or error alerts independently.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface.
package notifications
