package oracle

import "context"

// Suggestion is the oracle's proposal for a single file.
type Suggestion struct {
	Rename  string `json:"rename"`
	Move    string `json:"move"`
	Summary string `json:"summary"`
}

// Oracle produces rename/move proposals for files. Implementations carry
// no retry or backpressure contract of their own beyond what they
// document; callers drive pacing.
type Oracle interface {
	// Organize returns a proposal per file path for a batch preview.
	Organize(ctx context.Context, paths []string) (map[string]Suggestion, error)
	// Suggest returns the proposal for a single file. This is the
	// incremental variant the queue processor drives file by file.
	Suggest(ctx context.Context, path string) (Suggestion, error)
}
