// Package prompts composes the system prompts used by the CLI.
package prompts

import (
	"fmt"
	"strings"
)

// Builder assembles a prompt from fragments with {{key}} substitution.
type Builder struct {
	fragments []string
	variables map[string]string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{variables: make(map[string]string)}
}

// Add appends a fragment.
func (b *Builder) Add(text string) *Builder {
	b.fragments = append(b.fragments, text)
	return b
}

// Set records a variable for template substitution.
func (b *Builder) Set(key, value string) *Builder {
	b.variables[key] = value
	return b
}

// Build joins fragments and substitutes variables.
func (b *Builder) Build() string {
	result := strings.Join(b.fragments, "\n\n")
	for key, value := range b.variables {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}
