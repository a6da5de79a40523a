package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plotforge/plotforge/internal/db"
)

// Store persists evidence items in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Add inserts items, assigning IDs where missing.
func (s *Store) Add(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evidence_items (id, project_id, type, text, weight, chapter, source, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Weight == 0 {
			item.Weight = 1.0
		}
		source, err := marshalMap(item.Source)
		if err != nil {
			return fmt.Errorf("encoding source for %s: %w", item.ID, err)
		}
		meta, err := marshalMap(item.Meta)
		if err != nil {
			return fmt.Errorf("encoding meta for %s: %w", item.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, item.ID, item.ProjectID, string(item.Kind),
			item.Text, item.Weight, item.Chapter, source, meta); err != nil {
			return fmt.Errorf("inserting evidence item: %w", err)
		}
	}

	return tx.Commit()
}

// ByProject returns all items for a project, optionally filtered by kind.
func (s *Store) ByProject(ctx context.Context, projectID string, kinds ...Kind) ([]Item, error) {
	query := `SELECT id, project_id, type, text, weight, chapter, source, meta
		FROM evidence_items WHERE project_id = ?`
	args := []any{projectID}
	if len(kinds) > 0 {
		query += " AND type IN (?" + strings.Repeat(",?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// DeleteBySource removes items whose source path matches, used on re-import.
func (s *Store) DeleteBySource(ctx context.Context, projectID, sourcePath string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM evidence_items WHERE project_id = ? AND json_extract(source, '$.path') = ?`,
		projectID, sourcePath)
	if err != nil {
		return fmt.Errorf("deleting evidence by source: %w", err)
	}
	return nil
}

// DeleteByOrigin removes items with the given source origin so a reload
// replaces the previous batch instead of stacking. An empty chapter deletes
// project-wide, which is how card projections are refreshed.
func (s *Store) DeleteByOrigin(ctx context.Context, projectID, chapter, origin string) error {
	query := `DELETE FROM evidence_items WHERE project_id = ? AND json_extract(source, '$.origin') = ?`
	args := []any{projectID, origin}
	if chapter != "" {
		query += " AND chapter = ?"
		args = append(args, chapter)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting evidence by origin: %w", err)
	}
	return nil
}

// Stats counts items per kind.
func (s *Store) Stats(ctx context.Context, projectID string) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM evidence_items WHERE project_id = ? GROUP BY type`, projectID)
	if err != nil {
		return nil, fmt.Errorf("counting evidence: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByKind: make(map[Kind]int)}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		stats.ByKind[Kind(kind)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		var kind, source, meta string
		if err := rows.Scan(&item.ID, &item.ProjectID, &kind, &item.Text,
			&item.Weight, &item.Chapter, &source, &meta); err != nil {
			return nil, fmt.Errorf("scanning evidence item: %w", err)
		}
		item.Kind = Kind(kind)
		if err := json.Unmarshal([]byte(source), &item.Source); err != nil {
			return nil, fmt.Errorf("decoding source: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &item.Meta); err != nil {
			return nil, fmt.Errorf("decoding meta: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func marshalMap(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
