package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	watchedDir string
}

func setupCLITestEnv(t *testing.T, llmBaseURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	watched := filepath.Join(base, "watched")
	if err := os.MkdirAll(watched, 0o755); err != nil {
		t.Fatalf("mkdir watched: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[organizer]
auto_move = false
auto_rename = false
settle_delay_ms = 10

[llm]
api_key = "test-key"
base_url = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		llmBaseURL,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, watchedDir: watched}
}

func runCLI(t *testing.T, configPath string, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

// newSuggestionServer answers chat completion requests with a fixed
// proposal for every file mentioned in the prompt, keyed by base name.
func newSuggestionServer(t *testing.T, rename, move string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var base string
		for _, msg := range req.Messages {
			for _, line := range strings.Split(msg.Content, "\n") {
				if idx := strings.Index(line, "(name: "); idx >= 0 {
					rest := line[idx+len("(name: "):]
					if end := strings.Index(rest, ","); end >= 0 {
						base = rest[:end]
					}
				}
			}
		}
		content := fmt.Sprintf(`{"files": [{"path": %q, "rename": %q, "move": %q, "summary": "test file"}]}`,
			base, rename, move)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestConfigInit(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, _, err := runCLI(t, "", []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to overwrite without the flag.
	if _, _, err := runCLI(t, "", []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error for existing config file")
	}
	if _, _, err := runCLI(t, "", []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestWatchedFolderCommands(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")

	out, _, err := runCLI(t, env.configPath, []string{"watched", "list"})
	if err != nil {
		t.Fatalf("watched list: %v", err)
	}
	requireContains(t, out, "No watched folders configured")

	out, _, err = runCLI(t, env.configPath, []string{"watched", "add", env.watchedDir})
	if err != nil {
		t.Fatalf("watched add: %v", err)
	}
	requireContains(t, out, "Added watched folder")

	out, _, err = runCLI(t, env.configPath, []string{"watched", "list"})
	if err != nil {
		t.Fatalf("watched list: %v", err)
	}
	requireContains(t, out, env.watchedDir)

	out, _, err = runCLI(t, env.configPath, []string{"watched", "remove", env.watchedDir})
	if err != nil {
		t.Fatalf("watched remove: %v", err)
	}
	requireContains(t, out, "Removed watched folder")

	// Adding a non-directory fails.
	if _, _, err := runCLI(t, env.configPath, []string{"watched", "add", filepath.Join(env.baseDir, "missing")}); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestDestinationFolderCommands(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")

	out, _, err := runCLI(t, env.configPath, []string{"destinations", "add", env.watchedDir})
	if err != nil {
		t.Fatalf("destinations add: %v", err)
	}
	requireContains(t, out, "Added destination folder")

	out, _, err = runCLI(t, env.configPath, []string{"destinations", "list"})
	if err != nil {
		t.Fatalf("destinations list: %v", err)
	}
	requireContains(t, out, env.watchedDir)
}

func TestHistoryListEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")

	out, _, err := runCLI(t, env.configPath, []string{"history", "list"})
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "History is empty")
}

func TestOrganizeApproveAllEndToEnd(t *testing.T) {
	server := newSuggestionServer(t, "Invoice 2024.pdf", "")
	defer server.Close()

	env := setupCLITestEnv(t, server.URL)
	source := filepath.Join(env.watchedDir, "scan001.pdf")
	if err := os.WriteFile(source, []byte("content"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, []string{"organize", env.watchedDir, "--approve-all"})
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, out, "Organizing 1 files")
	requireContains(t, out, "Invoice 2024.pdf")

	// Approved rename was applied on disk.
	if _, err := os.Stat(filepath.Join(env.watchedDir, "Invoice 2024.pdf")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("original file still present: %v", err)
	}

	// The retirement landed in the persistent archive.
	out, _, err = runCLI(t, env.configPath, []string{"history", "list"})
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "scan001.pdf")
	requireContains(t, out, "Invoice 2024.pdf")

	out, _, err = runCLI(t, env.configPath, []string{"history", "clear"})
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 history records")
}

func TestOrganizeSendsDestinationsToOracle(t *testing.T) {
	var mu sync.Mutex
	var request string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request: %v", err)
		}
		mu.Lock()
		request = string(body)
		mu.Unlock()
		content := `{"files": [{"path": "scan001.pdf", "rename": "Invoice 2024.pdf", "move": "", "summary": "test file"}]}`
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, server.URL)
	destDir := filepath.Join(env.baseDir, "Paperwork")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatalf("mkdir destination: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, []string{"destinations", "add", destDir}); err != nil {
		t.Fatalf("destinations add: %v", err)
	}

	source := filepath.Join(env.watchedDir, "scan001.pdf")
	if err := os.WriteFile(source, []byte("content"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, []string{"organize", env.watchedDir, "--approve-all"}); err != nil {
		t.Fatalf("organize: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(request, destDir) {
		t.Fatalf("oracle request does not mention destination %q:\n%s", destDir, request)
	}
}

func TestOrganizeNoFiles(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")

	out, _, err := runCLI(t, env.configPath, []string{"organize"})
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, out, "No files to organize")
}
