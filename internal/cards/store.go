package cards

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/plotforge/plotforge/internal/db"
)

// Store persists cards in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a card store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert inserts the card or replaces the existing one with the same
// (project, kind, name). The card's ID is assigned when empty.
func (s *Store) Upsert(ctx context.Context, card *Card) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	aliases, err := json.Marshal(orEmpty(card.Aliases))
	if err != nil {
		return fmt.Errorf("encoding aliases: %w", err)
	}
	fields, err := json.Marshal(orEmptyFields(card.Fields))
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (id, project_id, kind, name, aliases, fields)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, kind, name) DO UPDATE SET
			aliases = excluded.aliases,
			fields = excluded.fields,
			updated_at = datetime('now')`,
		card.ID, card.ProjectID, string(card.Kind), card.Name, string(aliases), string(fields))
	if err != nil {
		return fmt.Errorf("upserting card: %w", err)
	}
	return nil
}

// Get returns the card with the given project, kind, and exact name.
func (s *Store) Get(ctx context.Context, projectID string, kind Kind, name string) (*Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, kind, name, aliases, fields
		FROM cards WHERE project_id = ? AND kind = ? AND name = ?`,
		projectID, string(kind), name)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading card %q: %w", name, err)
	}
	return card, nil
}

// List returns all cards for a project, optionally limited to one kind.
func (s *Store) List(ctx context.Context, projectID string, kinds ...Kind) ([]Card, error) {
	query := `SELECT id, project_id, kind, name, aliases, fields FROM cards WHERE project_id = ?`
	args := []any{projectID}
	if len(kinds) == 1 {
		query += " AND kind = ?"
		args = append(args, string(kinds[0]))
	}
	query += " ORDER BY kind, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	var result []Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		result = append(result, *card)
	}
	return result, rows.Err()
}

// Resolve finds the card matching name by exact name or alias. Returns nil
// when nothing matches.
func (s *Store) Resolve(ctx context.Context, projectID string, kind Kind, name string) (*Card, error) {
	if card, err := s.Get(ctx, projectID, kind, name); err != nil || card != nil {
		return card, err
	}

	all, err := s.List(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Matches(name) {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Delete removes a card by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting card: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*Card, error) {
	var card Card
	var kind, aliases, fields string
	if err := row.Scan(&card.ID, &card.ProjectID, &kind, &card.Name, &aliases, &fields); err != nil {
		return nil, err
	}
	card.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(aliases), &card.Aliases); err != nil {
		return nil, fmt.Errorf("decoding aliases: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &card.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return &card, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func orEmptyFields(fields []Field) []Field {
	if fields == nil {
		return []Field{}
	}
	return fields
}
