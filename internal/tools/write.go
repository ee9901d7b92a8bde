package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewWriteTool returns the `write` tool. Overwrites existing files and
// creates missing parent directories.
func NewWriteTool(root string) Tool {
	return Tool{
		Name:        "write",
		Description: "Write content to a file, overwriting any existing content. Parent directories are created as needed.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string","description":"File path, absolute or relative to the working directory"},"content":{"type":"string","description":"Full file content to write"}},"required":["path","content"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			return writeFile(root, path, content)
		},
	}
}

func writeFile(root, path, content string) (string, error) {
	full := resolvePath(root, path)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("cannot create parent directories for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}

	return fmt.Sprintf("Wrote %d lines to %s", countLines(content), path), nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
