// Package research implements the context research engine: it turns a
// chapter goal into typed knowledge gaps, retrieves and scores evidence for
// them over several rounds, and compiles the result into a budget-bounded
// working memory block for the writer.
package research

import (
	"github.com/plotforge/plotforge/internal/evidence"
)

// GapKind classifies a knowledge gap.
type GapKind string

const (
	GapPlotPoint       GapKind = "plot_point"
	GapCharacterChange GapKind = "character_change"
	GapDetail          GapKind = "detail_gap"
	GapExtraResearch   GapKind = "extra_research"
)

// skipRetrievalKinds are gap kinds that stop retrieving once the user has
// answered them; the answer itself is the authority.
var skipRetrievalKinds = map[GapKind]bool{
	GapCharacterChange: true,
}

// Gap is one thing the writer needs to know before drafting the chapter.
// Queries drive retrieval and the support gate; AskUser marks whether the
// gap may ever surface as a user question.
type Gap struct {
	Kind     GapKind  `json:"kind"`
	Text     string   `json:"text"`
	Queries  []string `json:"queries"`
	AskUser  bool     `json:"ask_user"`
	Entity   string   `json:"entity_name,omitempty"`
	Score    float64  `json:"score"`
	Answered bool     `json:"answered"`
}

// Question is a clarification request surfaced to the user when research
// cannot close a gap on its own.
type Question struct {
	Key    string `json:"key"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

// StopReason records why the research loop ended.
type StopReason string

const (
	StopSufficient   StopReason = "sufficient"
	StopMaxRounds    StopReason = "max_rounds"
	StopNoQueries    StopReason = "no_queries"
	StopOffline      StopReason = "offline_stop"
	StopEmptyPayload StopReason = "empty_payload"
)

// SufficiencyReport classifies how well the retrieved evidence covers the
// gaps. MissingEntities holds gaps with no qualifying support at all;
// UnknownGaps holds gaps the user explicitly declined to answer.
type SufficiencyReport struct {
	MissingEntities  []string       `json:"missing_entities,omitempty"`
	WeakGaps         []string       `json:"weak_gaps,omitempty"`
	CriticalWeakGaps []string       `json:"critical_weak_gaps,omitempty"`
	UnknownGaps      []string       `json:"unknown_gaps,omitempty"`
	EvidenceTypes    map[string]int `json:"evidence_types,omitempty"`
	Sufficient       bool           `json:"sufficient"`
	NeedsUserInput   bool           `json:"needs_user_input"`
}

// RetrievalRequest traces one retrieval call for the payload.
type RetrievalRequest struct {
	GapKind string   `json:"gap_kind"`
	GapText string   `json:"gap_text,omitempty"`
	Queries []string `json:"queries"`
	Round   int      `json:"round"`
	Count   int      `json:"count"`
	Skipped bool     `json:"skipped,omitempty"`
}

// EvidenceGroup holds the items one gap's retrieval brought in.
type EvidenceGroup struct {
	GapKind string                  `json:"gap_kind"`
	GapText string                  `json:"gap_text,omitempty"`
	Queries []string                `json:"queries"`
	Items   []evidence.SearchResult `json:"items"`
}

// EvidenceStats summarizes the final deduplicated pool.
type EvidenceStats struct {
	Total   int            `json:"total"`
	Types   map[string]int `json:"types"`
	Queries []string       `json:"queries,omitempty"`
}

// EvidencePack is the retrieval trace handed to downstream agents alongside
// the compiled memory.
type EvidencePack struct {
	Items  []evidence.SearchResult `json:"items"`
	Groups []EvidenceGroup         `json:"groups,omitempty"`
	Stats  EvidenceStats           `json:"stats"`
}

// Result is the full outcome of one research run.
type Result struct {
	ProjectID         string                  `json:"project_id"`
	Chapter           string                  `json:"chapter"`
	Goal              string                  `json:"goal"`
	Memory            string                  `json:"memory"`
	Gaps              []Gap                   `json:"gaps"`
	UnresolvedGaps    []Gap                   `json:"unresolved_gaps,omitempty"`
	Report            SufficiencyReport       `json:"report"`
	EvidencePack      EvidencePack            `json:"evidence_pack"`
	RetrievalRequests []RetrievalRequest      `json:"retrieval_requests,omitempty"`
	SeedEntities      []string                `json:"seed_entities,omitempty"`
	Questions         []Question              `json:"questions,omitempty"`
	StopReason        StopReason              `json:"stop_reason"`
	Rounds            int                     `json:"rounds"`
	Evidence          []evidence.SearchResult `json:"-"`
}

// Thresholds are the scoring knobs, normally taken from configuration.
type Thresholds struct {
	MinGapSupport       float64
	WellSupportedMargin float64
	MinWorldRuleScore   float64
	RerankTopK          int
}

// Supported reports whether score clears the minimum support bar.
func (t Thresholds) Supported(score float64) bool {
	return score >= t.MinGapSupport
}

// WellSupported reports whether score clears the comfortable margin above
// the minimum.
func (t Thresholds) WellSupported(score float64) bool {
	return score >= t.MinGapSupport+t.WellSupportedMargin
}
