package memorypack

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/plotforge/plotforge/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pack := &Pack{
		ProjectID:   "p1",
		Chapter:     "ch1",
		ChapterGoal: "主角抵达港口",
		Source:      "research",
		Payload:     json.RawMessage(`{"memory":"本章目标：主角抵达港口"}`),
	}
	if err := store.Save(ctx, pack); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Get(ctx, "p1", "ch1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded == nil {
		t.Fatal("pack not found")
	}
	if loaded.ChapterGoal != "主角抵达港口" || loaded.Source != "research" {
		t.Errorf("unexpected pack: %+v", loaded)
	}

	var payload map[string]string
	if err := json.Unmarshal(loaded.Payload, &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if payload["memory"] == "" {
		t.Error("expected memory in payload")
	}
}

func TestSaveReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, goal := range []string{"旧目标", "新目标"} {
		if err := store.Save(ctx, &Pack{
			ProjectID: "p1", Chapter: "ch1", ChapterGoal: goal,
			Payload: json.RawMessage(`{"v":1}`),
		}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	loaded, err := store.Get(ctx, "p1", "ch1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.ChapterGoal != "新目标" {
		t.Errorf("expected latest snapshot, got %q", loaded.ChapterGoal)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	pack, err := store.Get(context.Background(), "p1", "ghost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pack != nil {
		t.Errorf("expected nil, got %+v", pack)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Pack{ProjectID: "p1", Chapter: "ch1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "p1", "ch1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	pack, err := store.Get(ctx, "p1", "ch1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pack != nil {
		t.Error("expected pack deleted")
	}
}

func TestEmpty(t *testing.T) {
	tests := []struct {
		name string
		pack *Pack
		want bool
	}{
		{"nil pack", nil, true},
		{"no payload", &Pack{}, true},
		{"empty object", &Pack{Payload: json.RawMessage("{}")}, true},
		{"null", &Pack{Payload: json.RawMessage("null")}, true},
		{"real payload", &Pack{Payload: json.RawMessage(`{"memory":"x"}`)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pack.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}
