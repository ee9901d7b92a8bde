package sandbox

import (
	"os"
	"path/filepath"
)

// imageFor picks a Docker image for the working directory by probing for
// well-known project markers. A configured image override wins.
func imageFor(dir string, config Config) string {
	if config.DockerImage != "" {
		return config.DockerImage
	}

	markers := []struct {
		file  string
		image string
	}{
		{"go.mod", "golang:alpine"},
		{"package.json", "node:alpine"},
		{"pyproject.toml", "python:alpine"},
		{"requirements.txt", "python:alpine"},
		{"Cargo.toml", "rust:alpine"},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err == nil {
			return m.image
		}
	}
	return "alpine:latest"
}
