// Package logging wraps log/slog with curator's handler selection and
// attribute helpers so packages never import slog construction details
// directly.
package logging
