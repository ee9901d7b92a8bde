package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultReadLimit = 2000
	maxLineChars     = 2048
)

// NewReadTool returns the `read` tool. Relative paths resolve against root.
func NewReadTool(root string) Tool {
	return Tool{
		Name:        "read",
		Description: "Read a file, returning its content framed with 1-indexed line numbers. Long lines are truncated. Use offset and limit to page through large files.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string","description":"File path, absolute or relative to the working directory"},"offset":{"type":"integer","description":"1-indexed first line to return"},"limit":{"type":"integer","description":"Maximum number of lines to return"}},"required":["path"]}`,
		ReadOnly:    true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			offset := intArg(args, "offset", 1)
			limit := intArg(args, "limit", defaultReadLimit)
			return readFile(root, path, offset, limit)
		},
	}
}

func readFile(root, path string, offset, limit int) (string, error) {
	full := resolvePath(root, path)

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline yields a phantom empty final element.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	if offset < 1 {
		offset = 1
	}
	if offset > total {
		return fmt.Sprintf("0 lines (offset %d is past the end, file has %d lines)", offset, total), nil
	}
	if limit <= 0 {
		limit = defaultReadLimit
	}
	end := offset - 1 + limit
	if end > total {
		end = total
	}

	var b strings.Builder
	for i := offset - 1; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineChars {
			line = line[:maxLineChars] + "…"
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	fmt.Fprintf(&b, "(%d lines total)", total)
	return b.String(), nil
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
