package fsops

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadFolderSkipsDirsAndDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, ".hidden"), "x")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	items, err := ReadFolder(dir)
	if err != nil {
		t.Fatalf("ReadFolder: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Name != "a.txt" || items[1].Name != "b.txt" {
		t.Fatalf("unexpected order: %q, %q", items[0].Name, items[1].Name)
	}
	if items[0].Size != 1 {
		t.Fatalf("size = %d, want 1", items[0].Size)
	}
}

func TestReadFolderMissingDir(t *testing.T) {
	if _, err := ReadFolder(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestMoveFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	writeFile(t, src, "payload")
	dst := filepath.Join(dir, "nested", "deep", "dst.txt")

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still exists: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("dst content = %q", data)
	}
}

func TestMoveFileSamePathNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "a")
	if err := MoveFile(path, path); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing after noop move: %v", err)
	}
}

func TestDeleteFileMissingIsNotError(t *testing.T) {
	if err := DeleteFile(filepath.Join(t.TempDir(), "nope.txt")); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
}

func TestDeleteFileRemoves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	writeFile(t, path, "x")
	if err := DeleteFile(path); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still exists: %v", err)
	}
}

func TestCreateFolderRejectsEmpty(t *testing.T) {
	if err := CreateFolder("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{"clean", "Invoice 2024.pdf", "f", "Invoice 2024.pdf"},
		{"slashes", "a/b\\c.txt", "f", "a-b-c.txt"},
		{"dropped chars", "re?port\".txt", "f", "report.txt"},
		{"control chars", "bad\x00name\n.txt", "f", "badname.txt"},
		{"trim dots", " report. ", "f", "report"},
		{"empty falls back", "???", "original.txt", "original.txt"},
		{"whitespace falls back", "   ", "original.txt", "original.txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeName(tc.input, tc.fallback); got != tc.want {
				t.Fatalf("SanitizeName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")

	got, err := UniquePath(path)
	if err != nil {
		t.Fatalf("UniquePath: %v", err)
	}
	if got != path {
		t.Fatalf("free path changed: %q", got)
	}

	writeFile(t, path, "x")
	got, err = UniquePath(path)
	if err != nil {
		t.Fatalf("UniquePath: %v", err)
	}
	want := filepath.Join(dir, "report (1).txt")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}

	writeFile(t, want, "y")
	got, err = UniquePath(path)
	if err != nil {
		t.Fatalf("UniquePath: %v", err)
	}
	want = filepath.Join(dir, "report (2).txt")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}
}
