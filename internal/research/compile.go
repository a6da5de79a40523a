package research

import (
	"sort"
	"strconv"
	"strings"

	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/textutil"
)

// maxItemsPerKind is the working memory budget per evidence kind.
var maxItemsPerKind = map[evidence.Kind]int{
	evidence.KindWorldRule:   6,
	evidence.KindFact:        8,
	evidence.KindSummary:     4,
	evidence.KindWorldEntity: 6,
	evidence.KindCharacter:   4,
	evidence.KindTextChunk:   4,
	evidence.KindMemory:      4,
}

// constraintMinStars is the author-rating floor for a world rule to be
// promoted into the hard constraint section.
const constraintMinStars = 3

const (
	maxLineRunes        = 140
	maxConstraintLines  = 6
	maxUnresolvedBullet = 6
)

var kindLabels = map[evidence.Kind][2]string{
	evidence.KindWorldRule:   {"世界规则", "World rules"},
	evidence.KindFact:        {"事实", "Facts"},
	evidence.KindSummary:     {"章节摘要", "Chapter summaries"},
	evidence.KindWorldEntity: {"世界元素", "World elements"},
	evidence.KindCharacter:   {"角色", "Characters"},
	evidence.KindTextChunk:   {"原文片段", "Source excerpts"},
	evidence.KindMemory:      {"作者补充", "Author notes"},
}

// Compile renders the working memory block: chapter goal, hard constraints,
// available material bounded per kind, and the gaps research could not
// close. Hard constraints merge the brief's explicit rules and forbidden
// items with the world rules promoted from evidence. It returns the empty
// string when there is nothing to say.
func Compile(goal, language string, brief Brief, focusTerms []string, unresolved []Gap, pool []evidence.SearchResult, th Thresholds) string {
	en := language == "en"
	var sections []string

	if strings.TrimSpace(goal) != "" {
		sections = append(sections, header("本章目标", "Chapter goal", en)+"\n"+strings.TrimSpace(goal))
	}

	constraints, remaining := constraintLines(brief, pool, th, en)
	if len(constraints) > 0 {
		sections = append(sections, header("硬性约束", "Hard constraints", en)+"\n"+strings.Join(constraints, "\n"))
	}

	if material := renderMaterial(remaining, focusTerms, en); material != "" {
		sections = append(sections, header("可用素材", "Available material", en)+"\n"+material)
	}

	if len(unresolved) > 0 {
		var lines []string
		for i := range unresolved {
			if i >= maxUnresolvedBullet {
				break
			}
			lines = append(lines, "- "+unresolved[i].Text)
		}
		sections = append(sections, header("未解决缺口", "Unresolved gaps", en)+"\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func header(zh, en string, english bool) string {
	if english {
		return "[" + en + "]"
	}
	return "【" + zh + "】"
}

// constraintLines assembles the hard constraint section: the brief's stated
// constraints, its forbidden items with an explicit marker, and the
// qualifying world rules from evidence. The section is containment-deduped
// and capped.
func constraintLines(brief Brief, pool []evidence.SearchResult, th Thresholds, en bool) (lines []string, remaining []evidence.SearchResult) {
	var texts []string
	for _, c := range brief.Constraints {
		if c = textutil.CleanForMemory(c); c != "" {
			texts = append(texts, c)
		}
	}
	forbiddenPrefix := "禁忌: "
	if en {
		forbiddenPrefix = "Forbidden: "
	}
	for _, f := range brief.Forbidden {
		if f = textutil.CleanForMemory(f); f != "" {
			texts = append(texts, forbiddenPrefix+f)
		}
	}

	promoted, remaining := splitConstraints(pool, th)
	for _, r := range promoted {
		if text := textutil.CleanForMemory(r.Item.Text); text != "" {
			texts = append(texts, textutil.TruncateToBoundary(text, maxLineRunes))
		}
	}

	texts = textutil.DedupContainment(texts)
	if len(texts) > maxConstraintLines {
		texts = texts[:maxConstraintLines]
	}
	for _, text := range texts {
		lines = append(lines, "- "+text)
	}
	return lines, remaining
}

// splitConstraints promotes qualifying world rules into the constraint
// section: score at or above the world-rule floor and enough author stars.
func splitConstraints(pool []evidence.SearchResult, th Thresholds) (constraints, remaining []evidence.SearchResult) {
	for _, r := range pool {
		if r.Item.Kind == evidence.KindWorldRule &&
			r.Score >= th.MinWorldRuleScore &&
			itemStars(r.Item) >= constraintMinStars {
			constraints = append(constraints, r)
			continue
		}
		remaining = append(remaining, r)
	}
	sort.SliceStable(constraints, func(i, j int) bool {
		return constraints[i].Score > constraints[j].Score
	})
	if budget := maxItemsPerKind[evidence.KindWorldRule]; len(constraints) > budget {
		constraints = constraints[:budget]
	}
	return constraints, remaining
}

func itemStars(item evidence.Item) int {
	stars, err := strconv.Atoi(item.Meta["stars"])
	if err != nil {
		return 0
	}
	return stars
}

// renderMaterial groups the remaining pool by kind, reranks text chunks and
// summaries toward the focus terms, applies the per-kind budgets, and dedups
// the final lines.
func renderMaterial(pool []evidence.SearchResult, focusTerms []string, en bool) string {
	byKind := make(map[evidence.Kind][]evidence.SearchResult)
	for _, r := range pool {
		byKind[r.Item.Kind] = append(byKind[r.Item.Kind], r)
	}

	var parts []string
	for _, kind := range evidence.AllKinds {
		results := byKind[kind]
		if len(results) == 0 {
			continue
		}

		switch kind {
		case evidence.KindTextChunk, evidence.KindSummary:
			// Prose-like kinds surface what is closest to the focus first.
			sort.SliceStable(results, func(i, j int) bool {
				oi := textutil.TermOverlap(strings.ToLower(results[i].Item.Text), focusTerms)
				oj := textutil.TermOverlap(strings.ToLower(results[j].Item.Text), focusTerms)
				if oi != oj {
					return oi > oj
				}
				return results[i].Score > results[j].Score
			})
		default:
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Score > results[j].Score
			})
		}

		if budget := maxItemsPerKind[kind]; len(results) > budget {
			results = results[:budget]
		}
		lines := renderLines(results)
		if len(lines) == 0 {
			continue
		}

		label := kindLabels[kind][0]
		if en {
			label = kindLabels[kind][1]
		}
		parts = append(parts, label+":\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n")
}

// renderLines cleans, truncates, and containment-dedups item texts into
// bullet lines.
func renderLines(results []evidence.SearchResult) []string {
	var texts []string
	for _, r := range results {
		text := textutil.CleanForMemory(r.Item.Text)
		if text == "" {
			continue
		}
		texts = append(texts, textutil.TruncateToBoundary(text, maxLineRunes))
	}
	texts = textutil.DedupContainment(texts)

	lines := make([]string, 0, len(texts))
	for _, text := range texts {
		lines = append(lines, "- "+text)
	}
	return lines
}
