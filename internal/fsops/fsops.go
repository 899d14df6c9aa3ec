// Package fsops provides the filesystem primitives behind the organize
// pipeline: folder listing, safe renames/moves across filesystems, and
// filename sanitization for oracle-suggested names.
package fsops

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/unicode/norm"
)

// FileItem describes a single regular file found in a watched folder.
type FileItem struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// ReadFolder lists regular files in dir, skipping subdirectories and
// dotfiles. Results are sorted by name so batch order is stable.
func ReadFolder(dir string) ([]FileItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	items := make([]FileItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		items = append(items, FileItem{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// CreateFolder makes dir and any missing parents.
func CreateFolder(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("create folder: empty path")
	}
	return os.MkdirAll(dir, 0o755)
}

// DeleteFile removes path. Missing files are not an error.
func DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// MoveFile moves src to dst, creating destination parents as needed.
// Cross-device moves fall back to a verified copy followed by removing
// the source.
func MoveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFileVerified(src, dst); err != nil {
			return fmt.Errorf("copy across filesystems: %w", err)
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("remove source after copy: %w", err)
		}
		return nil
	}
	return fmt.Errorf("move file: %w", renameErr)
}

// OpenFile asks the desktop environment to open path with its default
// application.
func OpenFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	cmd := exec.Command("xdg-open", path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	// Release the child; xdg-open hands off to the application and exits.
	return cmd.Process.Release()
}

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeName cleans an oracle-suggested filename for use on disk:
// Unicode is NFC-normalized, unsafe characters are replaced, and control
// characters are dropped. Returns fallback when nothing usable remains.
func SanitizeName(name, fallback string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = fileNameReplacer.Replace(name)
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Trim(b.String(), " .")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// UniquePath returns path unchanged when nothing occupies it, otherwise
// appends " (n)" before the extension until a free slot is found.
func UniquePath(path string) (string, error) {
	const maxAttempts = 10000
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		return "", err
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, attempt, ext))
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted filename slots for %s", path)
}

// copyFileVerified streams src to dst with size and SHA256 verification,
// removing dst on mismatch.
func copyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
