package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenxhq/tenx/internal/chat"
)

// compactTailLen is how many trailing messages compaction keeps verbatim.
const compactTailLen = 4

// minCompactMessages is the smallest log compaction will touch.
const minCompactMessages = 6

// Summarizer condenses a message prefix into one summary string.
type Summarizer func(ctx context.Context, prefix []chat.Message) (string, error)

// Manager owns the current session's message log, token accounting, and
// persistence.
type Manager struct {
	mu          sync.Mutex
	store       *Store
	current     *Session
	workingDir  string
	defaultTier chat.Tier
}

// NewManager creates a manager persisting under configPath, scoped to
// workingDir.
func NewManager(configPath, workingDir string, defaultTier chat.Tier) *Manager {
	if defaultTier == "" {
		defaultTier = chat.TierSmart
	}
	return &Manager{
		store:       NewStore(configPath),
		workingDir:  workingDir,
		defaultTier: defaultTier,
	}
}

// Create starts a fresh session and makes it current.
func (m *Manager) Create(name string, tier chat.Tier) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(name, tier)
}

func (m *Manager) createLocked(name string, tier chat.Tier) (*Session, error) {
	if tier == "" {
		tier = m.defaultTier
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:               uuid.NewString(),
		Name:             name,
		ModelTier:        tier,
		WorkingDirectory: m.workingDir,
		Messages:         []chat.Message{},
		State:            StateActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}
	m.current = sess
	return sess, nil
}

// GetCurrent returns the current session, or nil.
func (m *Manager) GetCurrent() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetOrCreate returns the current session, creating one if none exists.
func (m *Manager) GetOrCreate() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, nil
	}
	return m.createLocked("", "")
}

// Load makes the identified session current.
func (m *Manager) Load(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.store.Load(id, m.workingDir)
	if err != nil {
		return nil, err
	}
	m.current = sess
	return sess, nil
}

// LoadByName makes the named session current.
func (m *Manager) LoadByName(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.store.LoadByName(name, m.workingDir)
	if err != nil {
		return nil, err
	}
	m.current = sess
	return sess, nil
}

// List returns session summaries for the working directory, newest first.
func (m *Manager) List() ([]Meta, error) {
	return m.store.List(m.workingDir)
}

// ResumeLast loads the most recently updated session.
func (m *Manager) ResumeLast() (*Session, error) {
	metas, err := m.store.List(m.workingDir)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("no sessions to resume")
	}
	return m.Load(metas[0].ID)
}

// AddMessage appends to the current session's log and updates the token
// estimate: assistant text counts as output, everything else as input.
func (m *Manager) AddMessage(msg chat.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		if _, err := m.createLocked("", ""); err != nil {
			return err
		}
	}

	est := EstimateTokens(msg)
	if msg.Role == chat.RoleAssistant {
		m.current.TokenUsage.Output += est
	} else {
		m.current.TokenUsage.Input += est
	}
	m.current.Messages = append(m.current.Messages, msg)
	m.current.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.current)
}

// Rename sets the current session's name.
func (m *Manager) Rename(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("no current session")
	}
	m.current.Name = name
	m.current.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.current)
}

// Fork copies the current log into a new session with a fresh id and
// parent_id set; the fork becomes current.
func (m *Manager) Fork(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, fmt.Errorf("no current session")
	}

	now := time.Now().UTC()
	fork := &Session{
		ID:               uuid.NewString(),
		Name:             name,
		ParentID:         m.current.ID,
		ModelTier:        m.current.ModelTier,
		WorkingDirectory: m.current.WorkingDirectory,
		Messages:         append([]chat.Message(nil), m.current.Messages...),
		TokenUsage:       m.current.TokenUsage,
		State:            m.current.State,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.Save(fork); err != nil {
		return nil, err
	}
	m.current = fork
	return fork, nil
}

// Clear empties the current session's log and counters.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	m.current.Messages = []chat.Message{}
	m.current.TokenUsage = chat.Usage{}
	m.current.State = StateActive
	m.current.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.current)
}

// Delete removes a session; deleting the current one clears it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(id, m.workingDir); err != nil {
		return err
	}
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	return nil
}

// TokenCount returns the current session's estimated token total.
func (m *Manager) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.TokenUsage.Total()
}

// ContextWindow returns the token budget of the current session's tier.
func (m *Manager) ContextWindow() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	tier := m.defaultTier
	if m.current != nil {
		tier = m.current.ModelTier
	}
	if w, ok := contextWindows[tier]; ok {
		return w
	}
	return contextWindows[chat.TierSmart]
}

// NeedsCompaction reports whether the log has reached the compaction
// threshold of its tier's context window.
func (m *Manager) NeedsCompaction() bool {
	return float64(m.TokenCount()) >= compactionThreshold*float64(m.ContextWindow())
}

// Compact replaces the log prefix with a single system summary message,
// keeping the last messages verbatim. Requires a log of at least
// minCompactMessages.
func (m *Manager) Compact(ctx context.Context, summarize Summarizer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("no current session")
	}
	if len(m.current.Messages) < minCompactMessages {
		return fmt.Errorf("session has %d messages, need at least %d to compact",
			len(m.current.Messages), minCompactMessages)
	}

	split := len(m.current.Messages) - compactTailLen
	prefix := m.current.Messages[:split]
	tail := m.current.Messages[split:]

	summary, err := summarize(ctx, prefix)
	if err != nil {
		return fmt.Errorf("summarizer failed: %w", err)
	}

	summaryMsg := chat.Message{
		Role:      chat.RoleSystem,
		Content:   summary,
		Timestamp: time.Now().UTC(),
	}

	log := make([]chat.Message, 0, 1+len(tail))
	log = append(log, summaryMsg)
	log = append(log, tail...)

	var usage chat.Usage
	for _, msg := range log {
		est := EstimateTokens(msg)
		if msg.Role == chat.RoleAssistant {
			usage.Output += est
		} else {
			usage.Input += est
		}
	}

	m.current.Messages = log
	m.current.TokenUsage = usage
	m.current.State = StateCompacted
	m.current.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.current)
}
