// Package superpower loads and runs multi-step prompt workflows defined as
// markdown documents with YAML frontmatter.
package superpower

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tenxhq/tenx/internal/chat"
)

const frontmatterDelimiter = "---"

// Step is one stage of a workflow. Its body is a prompt template whose
// variables are substituted at run time.
type Step struct {
	Number         int
	Name           string
	ModelTier      chat.Tier
	PromptTemplate string
	UsesPrevious   bool
	Multimodal     bool
	Tools          []string
}

// Superpower is a parsed workflow definition.
type Superpower struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Trigger     string `yaml:"trigger"`
	Multimodal  bool   `yaml:"multimodal"`
	Steps       []Step `yaml:"-"`
	Path        string `yaml:"-"`
}

var (
	stepHeading = regexp.MustCompile(`^## Step (\d+): (.+?) \(model: ([a-z]+)\)\s*$`)
	toolsMarker = regexp.MustCompile(`<!--\s*tools:\s*([^>]+?)\s*-->`)
)

// ParseFile parses a superpower definition from disk.
func ParseFile(path string) (*Superpower, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	sp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sp.Path = path
	if sp.Trigger == "" {
		sp.Trigger = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sp, nil
}

// Parse parses superpower markdown. The frontmatter block is optional; a
// document may open directly with its first step heading.
func Parse(data []byte) (*Superpower, error) {
	frontmatter, body := splitFrontmatter(data)

	var sp Superpower
	if len(frontmatter) > 0 {
		if err := yaml.Unmarshal(frontmatter, &sp); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
	}

	steps, err := parseSteps(body)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps defined")
	}
	sp.Steps = steps
	return &sp, nil
}

// splitFrontmatter separates the YAML frontmatter from the markdown body.
// Without an opening delimiter the whole document is body.
func splitFrontmatter(data []byte) (frontmatter, body []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, data
	}

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, data
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	return []byte(strings.Join(fmLines, "\n")), []byte(strings.Join(bodyLines, "\n"))
}

func parseSteps(body []byte) ([]Step, error) {
	var steps []Step
	var cur *Step
	var buf []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.PromptTemplate = strings.TrimSpace(strings.Join(buf, "\n"))
		cur.UsesPrevious = strings.Contains(cur.PromptTemplate, "{{previous}}") ||
			strings.Contains(cur.PromptTemplate, "{{output}}")
		cur.Multimodal = strings.Contains(cur.PromptTemplate, "{{image}}") ||
			strings.Contains(cur.PromptTemplate, "{{images}}")
		if m := toolsMarker.FindStringSubmatch(cur.PromptTemplate); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				if name = strings.TrimSpace(name); name != "" {
					cur.Tools = append(cur.Tools, name)
				}
			}
			cur.PromptTemplate = strings.TrimSpace(toolsMarker.ReplaceAllString(cur.PromptTemplate, ""))
		}
		steps = append(steps, *cur)
		cur, buf = nil, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := stepHeading.FindStringSubmatch(line); m != nil {
			flush()
			num, _ := strconv.Atoi(m[1])
			tier, err := chat.ParseTier(m[3])
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", num, err)
			}
			cur = &Step{Number: num, Name: m[2], ModelTier: tier}
			buf = nil
			continue
		}
		if cur != nil {
			buf = append(buf, line)
		}
	}
	flush()
	return steps, nil
}
