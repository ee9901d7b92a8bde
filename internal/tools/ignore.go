package tools

import (
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Directories never descended into by glob and grep.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"out":          true,
	"vendor":       true,
	"__pycache__":  true,
	".next":        true,
}

// ignorer combines the built-in directory set with the working directory's
// .gitignore, when present.
type ignorer struct {
	gi *gitignore.GitIgnore
}

func newIgnorer(root string) *ignorer {
	gi, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		gi = nil
	}
	return &ignorer{gi: gi}
}

// skipDir reports whether a directory entry should be pruned from a walk.
func (ig *ignorer) skipDir(name, rel string) bool {
	if ignoredDirs[name] {
		return true
	}
	return ig.gi != nil && ig.gi.MatchesPath(rel)
}

// skipFile reports whether a file should be excluded from results.
func (ig *ignorer) skipFile(rel string) bool {
	return ig.gi != nil && ig.gi.MatchesPath(rel)
}
