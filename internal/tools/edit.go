package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// NewEditTool returns the `edit` tool. old_string must occur exactly once.
func NewEditTool(root string) Tool {
	return Tool{
		Name:        "edit",
		Description: "Replace exactly one occurrence of old_string with new_string in a file. Fails if old_string is absent or ambiguous; include surrounding context to disambiguate.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string","description":"File path, absolute or relative to the working directory"},"old_string":{"type":"string","description":"Exact text to replace; must appear exactly once"},"new_string":{"type":"string","description":"Replacement text"}},"required":["path","old_string","new_string"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			oldStr, _ := args["old_string"].(string)
			newStr, _ := args["new_string"].(string)
			return editFile(root, path, oldStr, newStr)
		},
	}
}

func editFile(root, path, oldStr, newStr string) (string, error) {
	if oldStr == "" {
		return "", fmt.Errorf("old_string must not be empty")
	}
	full := resolvePath(root, path)

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	content := string(data)

	switch n := strings.Count(content, oldStr); {
	case n == 0:
		return "", fmt.Errorf("old_string not found in %s", path)
	case n > 1:
		return "", fmt.Errorf("old_string found %d times in %s, must be unique", n, path)
	}

	updated := strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}

	delta := countLines(updated) - countLines(content)
	sign := "+"
	if delta < 0 {
		sign = ""
	}
	return fmt.Sprintf("Edited %s (%s%d lines)", path, sign, delta), nil
}
