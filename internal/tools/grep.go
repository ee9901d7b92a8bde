package tools

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxGrepResults = 100

// NewGrepTool returns the `grep` tool.
func NewGrepTool(root string) Tool {
	return Tool{
		Name:        "grep",
		Description: "Regex search across files, emitting file:line:content matches. Ignores node_modules, .git, build-output directories, and .gitignore entries.",
		SchemaJSON:  `{"type":"object","properties":{"pattern":{"type":"string","description":"Regular expression to search for"},"path":{"type":"string","description":"Directory or file to search in, defaults to the working directory"},"glob":{"type":"string","description":"Restrict the search to files matching this glob pattern"}},"required":["pattern"]}`,
		ReadOnly:    true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			dir, _ := args["path"].(string)
			fileGlob, _ := args["glob"].(string)
			return grepFiles(ctx, root, dir, pattern, fileGlob)
		},
	}
}

func grepFiles(ctx context.Context, root, dir, pattern, fileGlob string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex pattern: %w", err)
	}

	base := root
	if dir != "" {
		base = resolvePath(root, dir)
	}
	ig := newIgnorer(base)

	var lines []string
	truncated := false
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && ig.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ig.skipFile(rel) {
			return nil
		}
		if fileGlob != "" && !globMatch(fileGlob, rel, d.Name()) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if bytes.IndexByte(data, 0) >= 0 {
			// binary
			return nil
		}

		for i, line := range strings.Split(string(data), "\n") {
			if !re.MatchString(line) {
				continue
			}
			if len(lines) >= maxGrepResults {
				truncated = true
				return filepath.SkipAll
			}
			lines = append(lines, fmt.Sprintf("%s:%d:%s", rel, i+1, strings.TrimSpace(line)))
		}
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}

	if len(lines) == 0 {
		return "No matches found", nil
	}
	out := strings.Join(lines, "\n")
	if truncated {
		out += fmt.Sprintf("\n(truncated at %d matches)", maxGrepResults)
	}
	return out, nil
}
