package agent

import (
	"encoding/json"
)

// commandBudget bounds how much of an embedded value (shell command,
// URL, pattern) a tool summary shows before truncating.
const commandBudget = 80

// SummarizeTool renders a tool invocation as a short one-line summary
// for progress display. Unrecognized tool names fall back to the bare
// name.
func SummarizeTool(name string, input json.RawMessage) string {
	var params struct {
		URL      string `json:"url"`
		Command  string `json:"command"`
		FilePath string `json:"file_path"`
		Pattern  string `json:"pattern"`
		Query    string `json:"query"`
	}
	// Malformed input degrades to the bare tool name.
	_ = json.Unmarshal(input, &params)

	switch name {
	case "WebFetch", "Fetch":
		if params.URL != "" {
			return "Fetching — " + truncate(params.URL, commandBudget)
		}
	case "Bash", "Shell":
		if params.Command != "" {
			return "Running — " + truncate(params.Command, commandBudget)
		}
	case "Read":
		if params.FilePath != "" {
			return "Reading — " + truncate(params.FilePath, commandBudget)
		}
	case "Write":
		if params.FilePath != "" {
			return "Writing — " + truncate(params.FilePath, commandBudget)
		}
	case "Edit":
		if params.FilePath != "" {
			return "Editing — " + truncate(params.FilePath, commandBudget)
		}
	case "Grep", "Glob":
		if params.Pattern != "" {
			return "Searching — " + truncate(params.Pattern, commandBudget)
		}
	case "WebSearch":
		if params.Query != "" {
			return "Searching web — " + truncate(params.Query, commandBudget)
		}
	}
	return name
}

// truncate shortens s to at most maxLen runes, marking the cut with an
// ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
