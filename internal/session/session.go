// Package session orchestrates a research run end to end: it reloads answer
// memory, seeds the loop from bindings and cards, runs it, and snapshots the
// resulting working memory pack per chapter.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/binding"
	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/config"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/memorypack"
	"github.com/plotforge/plotforge/internal/progress"
	"github.com/plotforge/plotforge/internal/research"
	"github.com/plotforge/plotforge/internal/textutil"
)

// recentWindow is how many preceding chapters feed plot-point retrieval.
const recentWindow = 3

// Payload is the JSON shape stored inside a memory pack.
type Payload struct {
	Memory            string                      `json:"memory"`
	StopReason        string                      `json:"stop_reason"`
	Rounds            int                         `json:"rounds"`
	Sufficient        bool                        `json:"sufficient"`
	NeedsUserInput    bool                        `json:"needs_user_input"`
	Questions         []research.Question         `json:"questions,omitempty"`
	Gaps              []research.Gap              `json:"gaps,omitempty"`
	UnresolvedGaps    []research.Gap              `json:"unresolved_gaps,omitempty"`
	Report            research.SufficiencyReport  `json:"report"`
	EvidencePack      research.EvidencePack       `json:"evidence_pack"`
	RetrievalRequests []research.RetrievalRequest `json:"retrieval_requests,omitempty"`
	SeedEntities      []string                    `json:"seed_entities,omitempty"`
	Cards             []cards.Card                `json:"cards,omitempty"`
	Digest            string                      `json:"digest"`
}

// Request identifies one chapter research request. Constraints and Forbidden
// are the brief's explicit rule lists; Progress overrides the session-wide
// progress sink for this run when set.
type Request struct {
	ProjectID   string
	Chapter     string
	Goal        string
	Brief       string
	Constraints []string
	Forbidden   []string
	Force       bool
	Offline     bool
	Progress    progress.Func
}

// Session wires the stores and the research loop together.
type Session struct {
	cfg        *config.Config
	cards      *cards.Store
	binder     *binding.Binder
	answers    *answers.Store
	packs      *memorypack.Store
	evidence   *evidence.Store
	index      *evidence.Index
	controller *research.Controller
	progress   progress.Func
}

// New creates a session over the given collaborators. prog may be nil.
func New(cfg *config.Config, cardStore *cards.Store, binder *binding.Binder,
	answerStore *answers.Store, packStore *memorypack.Store,
	evidenceStore *evidence.Store, index *evidence.Index,
	controller *research.Controller, prog progress.Func) *Session {
	return &Session{
		cfg:        cfg,
		cards:      cardStore,
		binder:     binder,
		answers:    answerStore,
		packs:      packStore,
		evidence:   evidenceStore,
		index:      index,
		controller: controller,
		progress:   prog,
	}
}

// EnsurePack returns the chapter's memory pack, building it when missing,
// stale, or forced. A failed rebuild falls back to the last valid snapshot.
func (s *Session) EnsurePack(ctx context.Context, req Request) (*memorypack.Pack, error) {
	existing, err := s.packs.Get(ctx, req.ProjectID, req.Chapter)
	if err != nil {
		return nil, err
	}
	digest := requestDigest(req)
	if !req.Force && !existing.Empty() && existing.ChapterGoal == req.Goal {
		if payload, err := Decode(existing); err == nil && payload.Digest == digest {
			return existing, nil
		}
	}

	pack, err := s.build(ctx, req, digest)
	if err != nil {
		// Keep serving the previous snapshot rather than nothing.
		if !existing.Empty() {
			log.Printf("warning: research failed, serving last snapshot: %v", err)
			return existing, nil
		}
		return nil, err
	}

	if pack.Empty() && !existing.Empty() {
		log.Printf("warning: research produced an empty payload, keeping last snapshot")
		return existing, nil
	}

	if err := s.packs.Save(ctx, pack); err != nil {
		return nil, fmt.Errorf("saving memory pack: %w", err)
	}
	return pack, nil
}

// build runs one full research pass and assembles the pack.
func (s *Session) build(ctx context.Context, req Request, digest string) (*memorypack.Pack, error) {
	prog := s.progress
	if req.Progress != nil {
		prog = req.Progress
	}

	if err := s.index.EnsureBuilt(ctx, req.ProjectID, req.Force); err != nil {
		log.Printf("warning: vector index unavailable: %v", err)
	}

	latest, err := s.answers.LatestByKey(ctx, req.ProjectID, req.Chapter)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}
	if err := s.reloadAnswerEvidence(ctx, req, latest); err != nil {
		return nil, err
	}
	if err := s.reloadCardEvidence(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	seedCharacters, seedEntities, err := s.binder.Seed(ctx, req.ProjectID, req.Chapter, req.Goal)
	if err != nil {
		return nil, fmt.Errorf("seeding entities: %w", err)
	}
	recent, err := s.binder.RecentChapters(ctx, req.ProjectID, req.Chapter, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("loading chapter window: %w", err)
	}

	known, snapshot, err := s.lookupCards(ctx, req.ProjectID, seedCharacters, seedEntities)
	if err != nil {
		return nil, err
	}

	result, err := s.controller.Run(ctx, research.Input{
		ProjectID: req.ProjectID,
		Chapter:   req.Chapter,
		Goal:      req.Goal,
		Brief: research.Brief{
			Text:        req.Brief,
			Constraints: req.Constraints,
			Forbidden:   req.Forbidden,
		},
		Language:          textutil.NormalizeLanguage(s.cfg.Language, "zh"),
		SeedCharacters:    seedCharacters,
		SeedWorldEntities: seedEntities,
		RecentChapters:    recent,
		ExtraQueries:      extraQueries(known, seedCharacters, seedEntities),
		KnownEntities:     known,
		LatestAnswers:     latest,
		Offline:           req.Offline || s.cfg.Research.Offline,
	}, research.Options{
		MaxRounds:             s.cfg.Research.MaxRounds,
		MaxQuestions:          s.cfg.Research.MaxQuestions,
		ForceMinimumQuestions: s.cfg.Research.ForceMinQuestions,
		Thresholds: research.Thresholds{
			MinGapSupport:       s.cfg.Research.MinGapSupport,
			WellSupportedMargin: s.cfg.Research.WellSupportedMargin,
			MinWorldRuleScore:   s.cfg.Research.MinWorldRuleScore,
			RerankTopK:          s.cfg.Research.RerankTopK,
		},
		Progress: prog,
	})
	if err != nil {
		return nil, fmt.Errorf("running research: %w", err)
	}

	payload := Payload{
		Memory:            result.Memory,
		StopReason:        string(result.StopReason),
		Rounds:            result.Rounds,
		Sufficient:        result.Report.Sufficient,
		NeedsUserInput:    result.Report.NeedsUserInput,
		Questions:         result.Questions,
		Gaps:              result.Gaps,
		UnresolvedGaps:    result.UnresolvedGaps,
		Report:            result.Report,
		EvidencePack:      result.EvidencePack,
		RetrievalRequests: result.RetrievalRequests,
		SeedEntities:      result.SeedEntities,
		Cards:             snapshot,
		Digest:            digest,
	}
	if result.StopReason == research.StopEmptyPayload {
		// An empty payload stays empty so the caller can fall back.
		return &memorypack.Pack{
			ProjectID: req.ProjectID, Chapter: req.Chapter,
			ChapterGoal: req.Goal, Source: "research",
		}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return &memorypack.Pack{
		ProjectID:   req.ProjectID,
		Chapter:     req.Chapter,
		ChapterGoal: req.Goal,
		Source:      "research",
		Payload:     raw,
	}, nil
}

// reloadAnswerEvidence replaces the chapter's user-answer evidence with the
// current answer set so retrieval sees the author's latest word.
func (s *Session) reloadAnswerEvidence(ctx context.Context, req Request, latest map[string]answers.Answer) error {
	if err := s.evidence.DeleteByOrigin(ctx, req.ProjectID, req.Chapter, "user_answer"); err != nil {
		return err
	}
	items := research.AnswerItems(req.ProjectID, req.Chapter, latest)
	if len(items) == 0 {
		return nil
	}
	if err := s.evidence.Add(ctx, items); err != nil {
		return fmt.Errorf("storing answer evidence: %w", err)
	}
	return nil
}

// reloadCardEvidence replaces the project's card-projected evidence with the
// current card set so edited fields are retrievable on the next run.
func (s *Session) reloadCardEvidence(ctx context.Context, projectID string) error {
	all, err := s.cards.List(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading cards: %w", err)
	}
	if err := s.evidence.DeleteByOrigin(ctx, projectID, "", "card"); err != nil {
		return err
	}
	var items []evidence.Item
	for i := range all {
		items = append(items, cards.EvidenceItems(&all[i])...)
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.evidence.Add(ctx, items); err != nil {
		return fmt.Errorf("storing card evidence: %w", err)
	}
	return nil
}

// extraQueries merges the seed entities into supplementary retrieval seeds,
// card-backed names first so known entities win the cap.
func extraQueries(known map[string]bool, characters, entities []string) []string {
	seeds := append(append([]string{}, characters...), entities...)
	var hits, missing []string
	for _, name := range seeds {
		if known[name] {
			hits = append(hits, name)
		} else {
			missing = append(missing, name)
		}
	}
	return append(hits, missing...)
}

// lookupCards resolves seed entities to cards, returning which ones exist
// and a snapshot of the resolved cards for the payload.
func (s *Session) lookupCards(ctx context.Context, projectID string, characters, entities []string) (map[string]bool, []cards.Card, error) {
	known := make(map[string]bool)
	var snapshot []cards.Card

	resolve := func(kind cards.Kind, names []string) error {
		for _, name := range names {
			card, err := s.cards.Resolve(ctx, projectID, kind, name)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", name, err)
			}
			if card != nil {
				known[name] = true
				snapshot = append(snapshot, *card)
			}
		}
		return nil
	}
	if err := resolve(cards.KindCharacter, characters); err != nil {
		return nil, nil, err
	}
	if err := resolve(cards.KindWorld, entities); err != nil {
		return nil, nil, err
	}
	return known, snapshot, nil
}

// SubmitAnswers records user answers for a chapter. The next forced
// EnsurePack picks them up.
func (s *Session) SubmitAnswers(ctx context.Context, projectID, chapter string, items []answers.Answer) error {
	for i := range items {
		items[i].ProjectID = projectID
		items[i].Chapter = chapter
		if err := s.answers.Add(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a pack payload.
func Decode(pack *memorypack.Pack) (*Payload, error) {
	if pack.Empty() {
		return nil, fmt.Errorf("empty pack")
	}
	var payload Payload
	if err := json.Unmarshal(pack.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &payload, nil
}

// requestDigest fingerprints the research inputs so unchanged requests can
// reuse the stored pack.
func requestDigest(req Request) string {
	parts := []string{req.ProjectID, req.Chapter, req.Goal, req.Brief}
	parts = append(parts, req.Constraints...)
	parts = append(parts, req.Forbidden...)
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}
