package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/tenxhq/tenx/internal/chat"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	sess := &Session{
		ID:               "round-trip-id",
		Name:             "feature work",
		ModelTier:        chat.TierFast,
		WorkingDirectory: "/path/to/project",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "hello", Timestamp: now},
			{Role: chat.RoleAssistant, Content: "hi there", Timestamp: now},
		},
		TokenUsage: chat.Usage{Input: 2, Output: 2},
		State:      StateActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("round-trip-id", "/path/to/project")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(sess, loaded) {
		t.Errorf("round trip mismatch:\nsaved  %+v\nloaded %+v", sess, loaded)
	}
}

func TestStoreScopesByWorkingDirectory(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Now().UTC()

	a := &Session{ID: "a", WorkingDirectory: "/proj/a", ModelTier: chat.TierSmart, State: StateActive, CreatedAt: now, UpdatedAt: now, Messages: []chat.Message{}}
	b := &Session{ID: "b", WorkingDirectory: "/proj/b", ModelTier: chat.TierSmart, State: StateActive, CreatedAt: now, UpdatedAt: now, Messages: []chat.Message{}}
	if err := store.Save(a); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(b); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List("/proj/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].ID != "a" {
		t.Errorf("list for /proj/a = %+v", metas)
	}

	if _, err := store.Load("b", "/proj/a"); err == nil {
		t.Error("session from another project loaded")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Now().UTC()

	for i, id := range []string{"old", "mid", "new"} {
		sess := &Session{
			ID:               id,
			WorkingDirectory: "/proj",
			ModelTier:        chat.TierSmart,
			State:            StateActive,
			Messages:         []chat.Message{},
			CreatedAt:        base,
			UpdatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(sess); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := store.List("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 || metas[0].ID != "new" || metas[2].ID != "old" {
		t.Errorf("order = %+v", metas)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	sess := &Session{ID: "gone", WorkingDirectory: "/proj", ModelTier: chat.TierSmart, State: StateActive, Messages: []chat.Message{}}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("gone", "/proj"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("gone", "/proj"); err == nil {
		t.Error("deleted session still loads")
	}
}
