package oracle

import (
	"fmt"
	"path/filepath"
	"strings"
)

const organizeSystemPrompt = `You are a file organization assistant. For each file you are given,
propose a clearer descriptive file name and a destination folder that groups
similar files together. Respond with JSON only, using this schema:

{"files": [{"path": "<the path exactly as given>",
            "rename": "<proposed file name with extension>",
            "move": "<proposed destination folder>",
            "summary": "<one short sentence describing the file>"}]}

Keep the original file extension. Propose folder names that are short and
generic (for example "Documents/Invoices" or "Photos/2026"). Include every
input file exactly once.`

func buildOrganizeUserPrompt(paths, destinations []string) string {
	var builder strings.Builder
	builder.WriteString("Propose a rename and destination folder for these files:\n")
	for _, path := range paths {
		builder.WriteString(fmt.Sprintf("- path: %s (name: %s, folder: %s)\n",
			path, filepath.Base(path), filepath.Dir(path)))
	}
	if len(destinations) > 0 {
		builder.WriteString("Prefer one of these destination folders for moves, unless none fits:\n")
		for _, dir := range destinations {
			builder.WriteString(fmt.Sprintf("- %s\n", dir))
		}
	}
	return builder.String()
}

type organizeResponse struct {
	Files []struct {
		Path    string `json:"path"`
		Rename  string `json:"rename"`
		Move    string `json:"move"`
		Summary string `json:"summary"`
	} `json:"files"`
}

// toSuggestions keys the response by input path, tolerating responses that
// key by base name instead of the full path.
func (r organizeResponse) toSuggestions(paths []string) (map[string]Suggestion, error) {
	byBase := make(map[string]string, len(paths))
	for _, path := range paths {
		byBase[filepath.Base(path)] = path
	}

	results := make(map[string]Suggestion, len(r.Files))
	for _, file := range r.Files {
		key := strings.TrimSpace(file.Path)
		if _, ok := byBase[key]; ok {
			key = byBase[key]
		}
		results[key] = Suggestion{
			Rename:  strings.TrimSpace(file.Rename),
			Move:    strings.TrimSpace(file.Move),
			Summary: strings.TrimSpace(file.Summary),
		}
	}

	var missing []string
	for _, path := range paths {
		if _, ok := results[path]; !ok {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("oracle organize: missing proposals for %s", strings.Join(missing, ", "))
	}
	return results, nil
}
