package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with plotforge-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('character','world')),
    name TEXT NOT NULL,
    aliases TEXT NOT NULL DEFAULT '[]',
    fields TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(project_id, kind, name)
);

CREATE INDEX IF NOT EXISTS idx_cards_project ON cards(project_id, kind);
CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(project_id, name);

CREATE TABLE IF NOT EXISTS chapter_bindings (
    project_id TEXT NOT NULL,
    chapter TEXT NOT NULL,
    seq INTEGER NOT NULL DEFAULT 0,
    characters TEXT NOT NULL DEFAULT '[]',
    world_entities TEXT NOT NULL DEFAULT '[]',
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(project_id, chapter)
);

CREATE INDEX IF NOT EXISTS idx_bindings_seq ON chapter_bindings(project_id, seq);

CREATE TABLE IF NOT EXISTS evidence_items (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('fact','summary','character','world_entity','world_rule','text_chunk','memory')),
    text TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    chapter TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '{}',
    meta TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evidence_project ON evidence_items(project_id, type);
CREATE INDEX IF NOT EXISTS idx_evidence_chapter ON evidence_items(project_id, chapter);

CREATE TABLE IF NOT EXISTS answers (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    chapter TEXT NOT NULL,
    question_key TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_answers_chapter ON answers(project_id, chapter);
CREATE INDEX IF NOT EXISTS idx_answers_key ON answers(project_id, chapter, question_key);

CREATE TABLE IF NOT EXISTS memory_packs (
    project_id TEXT NOT NULL,
    chapter TEXT NOT NULL,
    chapter_goal TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL DEFAULT '{}',
    built_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(project_id, chapter)
);
`
