package research

import (
	"fmt"
	"strings"

	"github.com/plotforge/plotforge/internal/textutil"
)

const (
	maxGaps             = 8
	maxCharacterChanges = 2
	maxExtraQueries     = 8
)

// Brief is the structured scene brief a research run starts from: free prose
// plus any explicit constraint and forbidden lists the author supplied.
type Brief struct {
	Text        string   `json:"text,omitempty"`
	Constraints []string `json:"world_constraints,omitempty"`
	Forbidden   []string `json:"forbidden,omitempty"`
}

// timelineMarkers are words whose presence in the brief suggests the timing
// is already pinned down.
var timelineMarkers = []string{
	"时间", "当天", "次日", "同时", "之后", "之前", "深夜", "清晨", "黄昏",
	"morning", "night", "before", "after", "meanwhile", "later",
}

// constraintMarkers suggest the brief already states the binding rules.
var constraintMarkers = []string{
	"规则", "设定", "禁止", "必须", "不能", "约束",
	"rule", "must", "cannot", "forbidden", "law",
}

// BuildGaps derives 3 to 8 typed knowledge gaps from the chapter goal, the
// scene brief, and the seed characters. Every gap carries the search queries
// retrieval will run for it.
func BuildGaps(goal string, brief Brief, language string, characters []string) []Gap {
	en := language == "en"
	var gaps []Gap

	// A stated goal always opens a plot-point gap; its query is the goal
	// text itself.
	if goal = strings.TrimSpace(goal); goal != "" {
		text := fmt.Sprintf("本章情节如何达成：%s", goal)
		if en {
			text = fmt.Sprintf("How does this chapter accomplish: %s", goal)
		}
		gaps = append(gaps, Gap{
			Kind: GapPlotPoint, Text: text, Queries: []string{goal}, AskUser: true,
		})
	}

	// No known characters means we do not even know who is on stage.
	if len(characters) == 0 {
		text, queries := "本章涉及哪些角色？", []string{"角色 人物 参与"}
		if en {
			text, queries = "Which characters are involved in this chapter?",
				[]string{"main characters", "participants", "cast"}
		}
		gaps = append(gaps, Gap{Kind: GapDetail, Text: text, Queries: queries, AskUser: true})
	}

	// Track state or motivation changes per seed character, capped.
	for i, name := range characters {
		if i >= maxCharacterChanges {
			break
		}
		text := fmt.Sprintf("%s在本章的状态或动机有何变化？", name)
		queries := []string{name + " 动机", name + " 状态"}
		if en {
			text = fmt.Sprintf("How do %s's state or motivation change in this chapter?", name)
			queries = []string{name + " motivation", name + " current state"}
		}
		gaps = append(gaps, Gap{
			Kind: GapCharacterChange, Text: text, Queries: queries, AskUser: true, Entity: name,
		})
	}

	// Category gaps fill in whatever the brief leaves unstated.
	if !containsAny(brief.Text, timelineMarkers) {
		text, queries := "本章发生在什么时间，与前文的时间线如何衔接？", []string{"时间 地点 场景"}
		if en {
			text, queries = "When does this chapter take place and how does it connect to the timeline?",
				[]string{"time", "location", "setting"}
		}
		gaps = append(gaps, Gap{Kind: GapDetail, Text: text, Queries: queries, AskUser: true})
	}
	if len(brief.Constraints) == 0 && !containsAny(brief.Text, constraintMarkers) {
		text, queries := "本章必须遵守哪些世界规则或硬性设定？", []string{"规则 禁忌 代价 限制"}
		if en {
			text, queries = "Which world rules or hard constraints bind this chapter?",
				[]string{"rules", "taboos", "cost", "constraints"}
		}
		gaps = append(gaps, Gap{Kind: GapPlotPoint, Text: text, Queries: queries, AskUser: true})
	}
	factText, factQueries := "与本章目标直接相关的既有事实有哪些？", []string{"关键事实 已确立事实"}
	if en {
		factText, factQueries = "Which established facts bear directly on this chapter's goal?",
			[]string{"key facts", "established facts"}
	}
	gaps = append(gaps, Gap{Kind: GapDetail, Text: factText, Queries: factQueries, AskUser: true})

	gaps = dedupGaps(gaps)
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}
	return gaps
}

// ExtraResearchGap wraps externally supplied queries, such as entity names
// mentioned in the goal or planner follow-ups, in a retrieval-only gap. It
// never becomes a user question.
func ExtraResearchGap(language string, queries []string) Gap {
	text := "研究补充查询"
	if language == "en" {
		text = "Supplementary research queries"
	}
	queries = textutil.UniqueStrings(queries)
	if len(queries) > maxExtraQueries {
		queries = queries[:maxExtraQueries]
	}
	return Gap{Kind: GapExtraResearch, Text: text, Queries: queries, AskUser: false}
}

// FocusTerms derives the vocabulary that marks a gap as plot-relevant: terms
// from the chapter goal plus the seed character names.
func FocusTerms(goal string, characters []string) []string {
	terms := textutil.ExtractTerms(goal)
	for _, name := range characters {
		terms = append(terms, strings.ToLower(name))
	}
	return textutil.UniqueStrings(terms)
}

func dedupGaps(gaps []Gap) []Gap {
	seen := make(map[string]bool, len(gaps))
	var out []Gap
	for _, gap := range gaps {
		key := textutil.NormalizeForDedup(gap.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, gap)
	}
	return out
}

func containsAny(text string, markers []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
