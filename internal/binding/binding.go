// Package binding tracks which characters and world entities belong to each
// chapter, and resolves loose goal-text mentions back to authored cards.
package binding

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/db"
	"github.com/plotforge/plotforge/internal/textutil"
)

// Binding links a chapter to the entities involved in it. Seq orders
// chapters for windowed retrieval.
type Binding struct {
	ProjectID     string   `json:"project_id"`
	Chapter       string   `json:"chapter"`
	Seq           int      `json:"seq"`
	Characters    []string `json:"characters"`
	WorldEntities []string `json:"world_entities"`
}

// Binder reads and writes chapter bindings and resolves entity mentions.
type Binder struct {
	db    *db.DB
	cards *cards.Store
}

// New creates a Binder over the given database and card store.
func New(database *db.DB, cardStore *cards.Store) *Binder {
	return &Binder{db: database, cards: cardStore}
}

// Upsert stores the binding for a chapter, replacing any previous one.
func (b *Binder) Upsert(ctx context.Context, binding *Binding) error {
	characters, err := json.Marshal(orEmpty(binding.Characters))
	if err != nil {
		return fmt.Errorf("encoding characters: %w", err)
	}
	entities, err := json.Marshal(orEmpty(binding.WorldEntities))
	if err != nil {
		return fmt.Errorf("encoding world entities: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO chapter_bindings (project_id, chapter, seq, characters, world_entities)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, chapter) DO UPDATE SET
			seq = excluded.seq,
			characters = excluded.characters,
			world_entities = excluded.world_entities,
			updated_at = datetime('now')`,
		binding.ProjectID, binding.Chapter, binding.Seq, string(characters), string(entities))
	if err != nil {
		return fmt.Errorf("upserting binding: %w", err)
	}
	return nil
}

// Get returns the binding for a chapter, or nil when none exists.
func (b *Binder) Get(ctx context.Context, projectID, chapter string) (*Binding, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT project_id, chapter, seq, characters, world_entities
		FROM chapter_bindings WHERE project_id = ? AND chapter = ?`,
		projectID, chapter)

	var binding Binding
	var characters, entities string
	err := row.Scan(&binding.ProjectID, &binding.Chapter, &binding.Seq, &characters, &entities)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading binding: %w", err)
	}
	if err := json.Unmarshal([]byte(characters), &binding.Characters); err != nil {
		return nil, fmt.Errorf("decoding characters: %w", err)
	}
	if err := json.Unmarshal([]byte(entities), &binding.WorldEntities); err != nil {
		return nil, fmt.Errorf("decoding world entities: %w", err)
	}
	return &binding, nil
}

// RecentChapters returns up to n chapter names that precede the given
// chapter in sequence order, most recent first. An unbound chapter yields
// the latest n chapters.
func (b *Binder) RecentChapters(ctx context.Context, projectID, chapter string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	seq := int(^uint(0) >> 1)
	if current, err := b.Get(ctx, projectID, chapter); err != nil {
		return nil, err
	} else if current != nil {
		seq = current.Seq
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT chapter FROM chapter_bindings
		WHERE project_id = ? AND seq < ? AND chapter != ?
		ORDER BY seq DESC LIMIT ?`,
		projectID, seq, chapter, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent chapters: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		result = append(result, name)
	}
	return result, rows.Err()
}

// ResolveMentions scans text for card names and aliases and returns the
// canonical names of mentioned cards, split by kind.
func (b *Binder) ResolveMentions(ctx context.Context, projectID, text string) (characters, worldEntities []string, err error) {
	if text == "" {
		return nil, nil, nil
	}
	all, err := b.cards.List(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing cards: %w", err)
	}
	for i := range all {
		if !all[i].MentionedIn(text) {
			continue
		}
		switch all[i].Kind {
		case cards.KindCharacter:
			characters = append(characters, all[i].Name)
		case cards.KindWorld:
			worldEntities = append(worldEntities, all[i].Name)
		}
	}
	return characters, worldEntities, nil
}

// Seed combines the stored binding for a chapter with entities mentioned in
// the goal text. It is the entity baseline the gap builder starts from.
func (b *Binder) Seed(ctx context.Context, projectID, chapter, goal string) (characters, worldEntities []string, err error) {
	binding, err := b.Get(ctx, projectID, chapter)
	if err != nil {
		return nil, nil, err
	}
	if binding != nil {
		characters = append(characters, binding.Characters...)
		worldEntities = append(worldEntities, binding.WorldEntities...)
	}

	mentionedChars, mentionedEntities, err := b.ResolveMentions(ctx, projectID, goal)
	if err != nil {
		return nil, nil, err
	}
	characters = textutil.UniqueStrings(append(characters, mentionedChars...))
	worldEntities = textutil.UniqueStrings(append(worldEntities, mentionedEntities...))
	return characters, worldEntities, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
