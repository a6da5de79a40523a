package research

import (
	"strings"

	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/textutil"
)

// queryTerms extracts the union of matchable terms across a gap's queries.
func queryTerms(gap *Gap) []string {
	var terms []string
	for _, q := range gap.Queries {
		terms = append(terms, textutil.ExtractTerms(q)...)
	}
	return textutil.UniqueStrings(terms)
}

// GapSupport computes how well the evidence pool supports a gap. Only items
// whose text shares at least one term with one of the gap's queries qualify;
// among those, the highest retrieval score wins. A gap without queries, or
// without any qualifying item, has zero support.
func GapSupport(gap *Gap, pool []evidence.SearchResult) float64 {
	if len(gap.Queries) == 0 {
		return 0
	}
	terms := queryTerms(gap)
	best := 0.0
	for _, r := range pool {
		text := strings.ToLower(r.Item.Text)
		if textutil.TermOverlap(text, terms) == 0 {
			continue
		}
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}

// ScoreGaps updates every gap's score against the pool. Gaps already
// answered by the user keep their pinned score.
func ScoreGaps(gaps []Gap, pool []evidence.SearchResult) {
	for i := range gaps {
		if gaps[i].Answered {
			continue
		}
		gaps[i].Score = GapSupport(&gaps[i], pool)
	}
}

// Classify builds the sufficiency report for the current state of the gaps.
// A gap below the support minimum has effectively no usable evidence and
// lands in MissingEntities. A supported gap below the well-supported bar is
// weak, and critically weak when it is plot-relevant: its kind is plot_point
// or its text overlaps the focus terms. Research is sufficient only when
// nothing is missing and no critical weak gaps remain. Gaps the user never
// gets to see (ask_user=false) cannot block sufficiency. unknownGaps carries
// the texts of gaps the user explicitly declined to answer.
func Classify(gaps []Gap, focusTerms []string, unknownGaps []string, pool []evidence.SearchResult, th Thresholds) SufficiencyReport {
	report := SufficiencyReport{
		UnknownGaps:   textutil.UniqueStrings(unknownGaps),
		EvidenceTypes: countTypes(pool),
	}

	for i := range gaps {
		gap := &gaps[i]
		if !gap.AskUser {
			continue
		}
		if !th.Supported(gap.Score) {
			report.MissingEntities = append(report.MissingEntities, gap.Text)
			continue
		}
		if th.WellSupported(gap.Score) {
			continue
		}
		report.WeakGaps = append(report.WeakGaps, gap.Text)
		if plotRelevant(gap, focusTerms) {
			report.CriticalWeakGaps = append(report.CriticalWeakGaps, gap.Text)
		}
	}

	report.Sufficient = len(report.MissingEntities) == 0 && len(report.CriticalWeakGaps) == 0
	report.NeedsUserInput = !report.Sufficient
	return report
}

// SelectUnresolvedGaps picks the at most three gaps worth surfacing: every
// unsupported gap, then supported-but-weak gaps that are plot-relevant. With
// forceMinimum the first plot-point gap always leads and remaining slots are
// filled even from resolved gaps, so at least one confirmation question can
// be asked. Gaps with ask_user=false are never selected.
func SelectUnresolvedGaps(gaps []Gap, focusTerms []string, th Thresholds, forceMinimum bool) []Gap {
	const maxUnresolved = 3

	var selected []Gap
	seen := make(map[string]bool)
	add := func(gap Gap) {
		if gap.Text == "" || seen[gap.Text] {
			return
		}
		seen[gap.Text] = true
		selected = append(selected, gap)
	}

	askable := make([]Gap, 0, len(gaps))
	for _, gap := range gaps {
		if gap.AskUser {
			askable = append(askable, gap)
		}
	}
	if len(askable) == 0 {
		return nil
	}

	if forceMinimum {
		for _, gap := range askable {
			if gap.Kind == GapPlotPoint {
				add(gap)
				break
			}
		}
	}

	for _, gap := range askable {
		if len(selected) >= maxUnresolved {
			break
		}
		if !th.Supported(gap.Score) {
			add(gap)
			continue
		}
		if !th.WellSupported(gap.Score) && plotRelevant(&gap, focusTerms) {
			add(gap)
		}
	}

	if forceMinimum {
		for _, gap := range askable {
			if len(selected) >= maxUnresolved {
				break
			}
			add(gap)
		}
	}
	return selected
}

func plotRelevant(gap *Gap, focusTerms []string) bool {
	if gap.Kind == GapPlotPoint {
		return true
	}
	if len(focusTerms) == 0 {
		return false
	}
	return textutil.TermOverlap(strings.ToLower(gap.Text), focusTerms) > 0
}

func countTypes(pool []evidence.SearchResult) map[string]int {
	if len(pool) == 0 {
		return nil
	}
	types := make(map[string]int)
	for _, r := range pool {
		types[string(r.Item.Kind)]++
	}
	return types
}
