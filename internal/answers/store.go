// Package answers persists user answers to research questions. The store is
// append-only; later answers for the same question key shadow earlier ones.
package answers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plotforge/plotforge/internal/db"
)

// Answer is one user response to a generated question. An empty or
// non-informative Answer records that the user could not answer; such
// questions are never asked again.
type Answer struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Chapter     string `json:"chapter"`
	QuestionKey string `json:"question_key"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Kind        string `json:"kind"`
}

// nonAnswers are responses that carry no information.
var nonAnswers = map[string]bool{
	"不知道": true,
	"不清楚": true,
	"不确定": true,
	"无":   true,
	"没有":  true,
	"随便":  true,
	"都行":  true,
	"不会":  true,
	"不懂":  true,
}

// Informative reports whether the answer text actually answers the question.
func (a *Answer) Informative() bool {
	text := strings.TrimSpace(a.Answer)
	if text == "" {
		return false
	}
	return !nonAnswers[text]
}

// Store persists answers in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates an answer store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Add appends an answer. The ID is assigned when empty.
func (s *Store) Add(ctx context.Context, answer *Answer) error {
	if answer.ID == "" {
		answer.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (id, project_id, chapter, question_key, question, answer, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		answer.ID, answer.ProjectID, answer.Chapter, answer.QuestionKey,
		answer.Question, answer.Answer, answer.Kind)
	if err != nil {
		return fmt.Errorf("inserting answer: %w", err)
	}
	return nil
}

// ByChapter returns every recorded answer for a chapter in insertion order.
func (s *Store) ByChapter(ctx context.Context, projectID, chapter string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, chapter, question_key, question, answer, kind
		FROM answers WHERE project_id = ? AND chapter = ?
		ORDER BY created_at, id`,
		projectID, chapter)
	if err != nil {
		return nil, fmt.Errorf("querying answers: %w", err)
	}
	defer rows.Close()

	var result []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Chapter, &a.QuestionKey,
			&a.Question, &a.Answer, &a.Kind); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// LatestByKey collapses a chapter's answers to the most recent one per
// question key.
func (s *Store) LatestByKey(ctx context.Context, projectID, chapter string) (map[string]Answer, error) {
	all, err := s.ByChapter(ctx, projectID, chapter)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]Answer, len(all))
	for _, a := range all {
		latest[a.QuestionKey] = a
	}
	return latest, nil
}
