package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store persists sessions as one JSON file each, scoped per project by a
// short hash of the working directory.
type Store struct {
	basePath string
}

// NewStore creates a store rooted at configPath (typically ~/.config/10x).
func NewStore(configPath string) *Store {
	return &Store{basePath: filepath.Join(configPath, "sessions")}
}

// dirHash scopes sessions to a project directory.
func dirHash(dir string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(dir)))
	return hex.EncodeToString(hash[:])[:12]
}

func (s *Store) sessionDir(workingDir string) string {
	return filepath.Join(s.basePath, dirHash(workingDir))
}

// Save writes the session to disk.
func (s *Store) Save(sess *Session) error {
	dir := s.sessionDir(sess.WorkingDirectory)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	filename := filepath.Join(dir, sess.ID+".json")
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves one session by id.
func (s *Store) Load(id, workingDir string) (*Session, error) {
	filename := filepath.Join(s.sessionDir(workingDir), id+".json")
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// LoadByName retrieves the most recently updated session with the given name.
func (s *Store) LoadByName(name, workingDir string) (*Session, error) {
	metas, err := s.List(workingDir)
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		if m.Name == name {
			return s.Load(m.ID, workingDir)
		}
	}
	return nil, fmt.Errorf("no session named %q", name)
}

// List returns session metadata for a working directory, newest first.
func (s *Store) List(workingDir string) ([]Meta, error) {
	dir := s.sessionDir(workingDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Meta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		metas = append(metas, Meta{
			ID:        sess.ID,
			Name:      sess.Name,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Messages:  len(sess.Messages),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes one session file.
func (s *Store) Delete(id, workingDir string) error {
	filename := filepath.Join(s.sessionDir(workingDir), id+".json")
	if err := os.Remove(filename); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
