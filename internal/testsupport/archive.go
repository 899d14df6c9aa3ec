package testsupport

import (
	"testing"

	"curator/internal/config"
	"curator/internal/history"
)

// MustOpenArchive opens a history.Archive for tests and registers cleanup.
func MustOpenArchive(t testing.TB, cfg *config.Config) *history.Archive {
	t.Helper()

	archive, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		archive.Close()
	})
	return archive
}
