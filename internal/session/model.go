package session

import (
	"time"

	"github.com/tenxhq/tenx/internal/chat"
)

// State tracks whether a session log has been compacted.
type State string

const (
	StateActive    State = "active"
	StateCompacted State = "compacted"
)

// Session is a persistent conversation: the message log plus accounting.
type Session struct {
	ID               string         `json:"id"`
	Name             string         `json:"name,omitempty"`
	ParentID         string         `json:"parent_id,omitempty"`
	ModelTier        chat.Tier      `json:"model_tier"`
	WorkingDirectory string         `json:"working_directory"`
	Messages         []chat.Message `json:"messages"`
	TokenUsage       chat.Usage     `json:"token_usage"`
	State            State          `json:"state"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Meta is a lightweight representation for listing.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// Context windows per tier, conservative.
var contextWindows = map[chat.Tier]int{
	chat.TierSuperfast: 128_000,
	chat.TierFast:      256_000,
	chat.TierSmart:     200_000,
}

// compactionThreshold is the context-window fraction that triggers compaction.
const compactionThreshold = 0.8

// EstimateTokens is the coarse chars/4 estimate over a message's textual
// content. It exists only as a compaction trigger, not for billing.
func EstimateTokens(m chat.Message) int {
	n := len(m.Text())
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
