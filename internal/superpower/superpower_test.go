package superpower

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tenxhq/tenx/internal/chat"
)

const reviewDoc = `---
name: Review
description: Two-pass review.
trigger: review
multimodal: true
---

## Step 1: Gather (model: fast)

<!-- tools: read, grep -->
Collect context for {{input}} in {{cwd}}.

## Step 2: Judge (model: smart)

Assess the findings and the screenshot {{image}}.

{{previous}}
`

func TestParseDocument(t *testing.T) {
	sp, err := Parse([]byte(reviewDoc))
	if err != nil {
		t.Fatal(err)
	}
	if sp.Name != "Review" || sp.Trigger != "review" || !sp.Multimodal {
		t.Errorf("frontmatter = %+v", sp)
	}
	if len(sp.Steps) != 2 {
		t.Fatalf("steps = %d", len(sp.Steps))
	}

	s1 := sp.Steps[0]
	if s1.Number != 1 || s1.Name != "Gather" || s1.ModelTier != chat.TierFast {
		t.Errorf("step 1 = %+v", s1)
	}
	if !reflect.DeepEqual(s1.Tools, []string{"read", "grep"}) {
		t.Errorf("step 1 tools = %v", s1.Tools)
	}
	if s1.UsesPrevious || s1.Multimodal {
		t.Errorf("step 1 flags = %+v", s1)
	}
	if s1.PromptTemplate != "Collect context for {{input}} in {{cwd}}." {
		t.Errorf("step 1 template = %q", s1.PromptTemplate)
	}

	s2 := sp.Steps[1]
	if s2.ModelTier != chat.TierSmart || !s2.UsesPrevious || !s2.Multimodal {
		t.Errorf("step 2 = %+v", s2)
	}
	if s2.Tools != nil {
		t.Errorf("step 2 tools = %v", s2.Tools)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	a, err := Parse([]byte(reviewDoc))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(reviewDoc))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated parses differ")
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	doc := "## Step 1: Only (model: superfast)\n\nDo the thing.\n"
	sp, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if sp.Trigger != "" || len(sp.Steps) != 1 {
		t.Errorf("parsed = %+v", sp)
	}
}

func TestParseRejectsBadTierAndEmpty(t *testing.T) {
	if _, err := Parse([]byte("## Step 1: Bad (model: turbo)\n\nx\n")); err == nil {
		t.Error("invalid tier accepted")
	}
	if _, err := Parse([]byte("just prose, no steps\n")); err == nil {
		t.Error("stepless document accepted")
	}
}

func TestParseFileDefaultsTriggerFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ship-it.md")
	doc := "---\ndescription: d\n---\n\n## Step 1: Go (model: fast)\n\nGo.\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	sp, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if sp.Trigger != "ship-it" {
		t.Errorf("trigger = %q", sp.Trigger)
	}
}

func TestInterpolate(t *testing.T) {
	in := Input{UserInput: "fix auth", Cwd: "/repo", Images: []string{"a.png", "b.png"}}
	outputs := map[int]string{1: "found it", 2: "patched"}

	got := interpolate(
		"task {{input}} aka {{user_input}} in {{cwd}}; prev={{previous}}/{{output}}; s1={{step1}} s2={{step2}} s9={{step9}}; img={{image}} all={{images}}",
		in, "patched", outputs)
	want := "task fix auth aka fix auth in /repo; prev=patched/patched; s1=found it s2=patched s9={{step9}}; img=a.png all=a.png, b.png"
	if got != want {
		t.Errorf("interpolate:\n got %q\nwant %q", got, want)
	}
}
