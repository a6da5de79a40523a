// Package memorypack stores the compiled per-chapter working memory packs.
// The payload is kept as raw JSON so the storage layer stays agnostic of the
// research result shape.
package memorypack

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plotforge/plotforge/internal/db"
)

// Pack is one chapter's compiled working memory snapshot.
type Pack struct {
	ProjectID   string          `json:"project_id"`
	Chapter     string          `json:"chapter"`
	ChapterGoal string          `json:"chapter_goal"`
	Source      string          `json:"source"`
	Payload     json.RawMessage `json:"payload"`
	BuiltAt     time.Time       `json:"built_at"`
}

// Empty reports whether the pack carries no usable payload.
func (p *Pack) Empty() bool {
	if p == nil {
		return true
	}
	trimmed := string(p.Payload)
	return trimmed == "" || trimmed == "{}" || trimmed == "null"
}

// Store persists packs in SQLite, one row per (project, chapter).
type Store struct {
	db *db.DB
}

// NewStore creates a pack store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save writes the pack, replacing any previous snapshot for the chapter.
func (s *Store) Save(ctx context.Context, pack *Pack) error {
	payload := pack.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_packs (project_id, chapter, chapter_goal, source, payload, built_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(project_id, chapter) DO UPDATE SET
			chapter_goal = excluded.chapter_goal,
			source = excluded.source,
			payload = excluded.payload,
			built_at = excluded.built_at`,
		pack.ProjectID, pack.Chapter, pack.ChapterGoal, pack.Source, string(payload))
	if err != nil {
		return fmt.Errorf("saving memory pack: %w", err)
	}
	return nil
}

// Get returns the stored pack for a chapter, or nil when none exists.
func (s *Store) Get(ctx context.Context, projectID, chapter string) (*Pack, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, chapter, chapter_goal, source, payload, built_at
		FROM memory_packs WHERE project_id = ? AND chapter = ?`,
		projectID, chapter)

	var pack Pack
	var payload string
	var builtAt string
	err := row.Scan(&pack.ProjectID, &pack.Chapter, &pack.ChapterGoal, &pack.Source, &payload, &builtAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading memory pack: %w", err)
	}
	pack.Payload = json.RawMessage(payload)
	if t, err := time.Parse("2006-01-02 15:04:05", builtAt); err == nil {
		pack.BuiltAt = t
	}
	return &pack, nil
}

// Delete removes a chapter's pack.
func (s *Store) Delete(ctx context.Context, projectID, chapter string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM memory_packs WHERE project_id = ? AND chapter = ?", projectID, chapter)
	if err != nil {
		return fmt.Errorf("deleting memory pack: %w", err)
	}
	return nil
}
