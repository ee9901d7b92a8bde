package tools

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const maxGlobResults = 200

// NewGlobTool returns the `glob` tool.
func NewGlobTool(root string) Tool {
	return Tool{
		Name:        "glob",
		Description: "Find files matching a glob pattern (e.g. *.go, src/*.ts). Ignores node_modules, .git, build-output directories, and .gitignore entries.",
		SchemaJSON:  `{"type":"object","properties":{"pattern":{"type":"string","description":"Glob pattern matched against file names and relative paths"},"path":{"type":"string","description":"Directory to search in, defaults to the working directory"}},"required":["pattern"]}`,
		ReadOnly:    true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			dir, _ := args["path"].(string)
			return globFiles(ctx, root, dir, pattern)
		},
	}
}

func globFiles(ctx context.Context, root, dir, pattern string) (string, error) {
	base := root
	if dir != "" {
		base = resolvePath(root, dir)
	}
	ig := newIgnorer(base)

	var matches []string
	truncated := false
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
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
		if !globMatch(pattern, rel, d.Name()) {
			return nil
		}
		if len(matches) >= maxGlobResults {
			truncated = true
			return filepath.SkipAll
		}
		matches = append(matches, rel)
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d files", len(matches))
	if truncated {
		b.WriteString(" (truncated)")
	}
	for _, m := range matches {
		b.WriteString("\n")
		b.WriteString(m)
	}
	return b.String(), nil
}

// globMatch matches pattern against the relative path, falling back to the
// base name for separator-free patterns so `*.go` finds nested files.
func globMatch(pattern, rel, name string) bool {
	if ok, err := filepath.Match(pattern, rel); err == nil && ok {
		return true
	}
	if !strings.ContainsRune(pattern, filepath.Separator) {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
