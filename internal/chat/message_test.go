package chat

import "testing"

func TestMessageValidate(t *testing.T) {
	ok := Message{Role: RoleUser, Content: "hi"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}

	bad := Message{Role: Role("robot"), Content: "hi"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown role accepted")
	}

	orphan := Message{Role: RoleTool, Content: "result"}
	if err := orphan.Validate(); err == nil {
		t.Error("tool message without tool_call_id accepted")
	}

	linked := Message{Role: RoleTool, Content: "result", ToolCallID: "call-1"}
	if err := linked.Validate(); err != nil {
		t.Errorf("linked tool message rejected: %v", err)
	}
}

func TestMessageText(t *testing.T) {
	plain := Message{Role: RoleUser, Content: "hello"}
	if plain.Text() != "hello" {
		t.Errorf("Text() = %q", plain.Text())
	}

	multi := Message{Role: RoleUser, Parts: []ContentPart{
		{Kind: PartText, Text: "describe "},
		{Kind: PartImage, URL: "https://example.com/a.png"},
		{Kind: PartText, Text: "this"},
	}}
	if multi.Text() != "describe this" {
		t.Errorf("Text() = %q", multi.Text())
	}
	if !multi.HasImages() {
		t.Error("HasImages() = false")
	}
	if !AnyImages([]Message{plain, multi}) {
		t.Error("AnyImages missed image part")
	}
	if AnyImages([]Message{plain}) {
		t.Error("AnyImages false positive")
	}
}

func TestParseTierAndRoutingMode(t *testing.T) {
	for _, s := range []string{"superfast", "fast", "smart"} {
		if _, err := ParseTier(s); err != nil {
			t.Errorf("ParseTier(%q): %v", s, err)
		}
	}
	if _, err := ParseTier("turbo"); err == nil {
		t.Error("ParseTier accepted unknown tier")
	}

	if _, err := ParseRoutingMode("auto"); err != nil {
		t.Error("auto must be a routing mode")
	}
	if _, ok := RouteAuto.TierOf(); ok {
		t.Error("auto has no fixed tier")
	}
	if tier, ok := RouteFast.TierOf(); !ok || tier != TierFast {
		t.Errorf("RouteFast.TierOf() = %v, %v", tier, ok)
	}
}

func TestToolCallFinish(t *testing.T) {
	c := ToolCall{ID: "1", Name: "read", Status: StatusRunning}
	c.Finish(true, "contents", "")
	if c.Status != StatusSuccess || c.Output.Text != "contents" {
		t.Errorf("success transition: %+v", c)
	}

	c = ToolCall{ID: "2", Name: "bash", Status: StatusRunning}
	c.Finish(false, "", "exit status 1")
	if c.Status != StatusError || c.Output.Error != "exit status 1" {
		t.Errorf("error transition: %+v", c)
	}
}

func TestUsageAdd(t *testing.T) {
	u := Usage{Input: 10, Output: 5}
	u.Add(Usage{Input: 3, Output: 2})
	if u.Input != 13 || u.Output != 7 || u.Total() != 20 {
		t.Errorf("usage = %+v", u)
	}
}
