package research

import (
	"testing"

	"github.com/plotforge/plotforge/internal/evidence"
)

func testThresholds() Thresholds {
	return Thresholds{
		MinGapSupport:       3.0,
		WellSupportedMargin: 0.8,
		MinWorldRuleScore:   3.5,
		RerankTopK:          16,
	}
}

func gapWithQueries(kind GapKind, text string, queries ...string) Gap {
	return Gap{Kind: kind, Text: text, Queries: queries, AskUser: true}
}

func result(kind evidence.Kind, text string, score float64) evidence.SearchResult {
	return evidence.SearchResult{
		Item:  evidence.Item{ID: text, Kind: kind, Text: text},
		Score: score,
	}
}

func TestGapSupportQueryTermGate(t *testing.T) {
	gap := gapWithQueries(GapDetail, "守卫换班的时间", "守卫 换班")
	pool := []evidence.SearchResult{
		// High score but no term overlap with any query: must not count.
		result(evidence.KindFact, "港口的潮汐规律", 9.0),
		result(evidence.KindFact, "守卫在午夜换班", 2.5),
	}
	if got := GapSupport(&gap, pool); got != 2.5 {
		t.Errorf("GapSupport = %f, want 2.5", got)
	}
}

func TestGapSupportTakesMaxAcrossQueries(t *testing.T) {
	gap := gapWithQueries(GapDetail, "守卫换班的时间", "守卫 换班", "夜间 巡逻")
	pool := []evidence.SearchResult{
		result(evidence.KindFact, "守卫在午夜换班", 2.5),
		result(evidence.KindSummary, "这一章讲述夜间巡逻的安排", 4.0),
		result(evidence.KindFact, "守卫的装备", 1.0),
	}
	if got := GapSupport(&gap, pool); got != 4.0 {
		t.Errorf("GapSupport = %f, want max 4.0", got)
	}
}

func TestGapSupportNoQueries(t *testing.T) {
	gap := Gap{Kind: GapDetail, Text: "缺口", AskUser: true}
	pool := []evidence.SearchResult{result(evidence.KindFact, "缺口相关内容", 5.0)}
	if got := GapSupport(&gap, pool); got != 0 {
		t.Errorf("a gap without queries has no support, got %f", got)
	}
}

func TestScoreGapsKeepsAnsweredScore(t *testing.T) {
	gaps := []Gap{
		{Kind: GapCharacterChange, Text: "张三的动机", Queries: []string{"张三 动机"},
			AskUser: true, Answered: true, Score: 4.0},
	}
	ScoreGaps(gaps, nil)
	if gaps[0].Score != 4.0 {
		t.Errorf("answered gap score changed to %f", gaps[0].Score)
	}
}

func TestClassifySupportedPlotGapStillCritical(t *testing.T) {
	th := testThresholds()
	gaps := []Gap{
		gapWithQueries(GapPlotPoint, "本章情节如何达成：主角抵达港口", "主角抵达港口"),
	}
	gaps[0].Score = 3.4 // above the support floor, below the comfortable bar

	report := Classify(gaps, FocusTerms("主角抵达港口", nil), nil, nil, th)
	if len(report.MissingEntities) != 0 {
		t.Errorf("a supported gap is not missing, got %v", report.MissingEntities)
	}
	if len(report.WeakGaps) != 1 {
		t.Fatalf("a supported but not well-supported gap is weak, got %v", report.WeakGaps)
	}
	if len(report.CriticalWeakGaps) != 1 {
		t.Fatalf("a weak plot gap is critical, got %v", report.CriticalWeakGaps)
	}
	if report.Sufficient {
		t.Error("a critical weak gap must block sufficiency")
	}
	if !report.NeedsUserInput {
		t.Error("insufficient research needs user input")
	}
}

func TestClassifyUnsupportedGapIsMissing(t *testing.T) {
	th := testThresholds()
	gaps := []Gap{
		gapWithQueries(GapDetail, "与本章目标直接相关的既有事实有哪些？", "关键事实 已确立事实"),
	}
	gaps[0].Score = 0

	report := Classify(gaps, nil, nil, nil, th)
	if len(report.MissingEntities) != 1 || report.MissingEntities[0] != gaps[0].Text {
		t.Errorf("an unsupported gap lands in missing entities, got %v", report.MissingEntities)
	}
	if len(report.WeakGaps) != 0 {
		t.Errorf("an unsupported gap is not weak, got %v", report.WeakGaps)
	}
	if report.Sufficient {
		t.Error("missing support must block sufficiency")
	}
}

func TestClassifyFocusOverlapMakesCritical(t *testing.T) {
	th := testThresholds()
	gap := gapWithQueries(GapDetail, "旧宅里藏着什么", "旧宅 隐藏")
	gap.Score = 3.2

	report := Classify([]Gap{gap}, FocusTerms("夜探旧宅", nil), nil, nil, th)
	if len(report.CriticalWeakGaps) != 1 {
		t.Errorf("a weak gap overlapping the focus terms is critical, got %v", report.CriticalWeakGaps)
	}
}

func TestClassifySufficiencyAsymmetry(t *testing.T) {
	th := testThresholds()
	// A weak gap that is neither the plot point nor goal-related does not
	// block sufficiency, but it is still reported.
	gap := gapWithQueries(GapDetail, "守卫换班的时间", "守卫 换班")
	gap.Score = 3.1

	report := Classify([]Gap{gap}, FocusTerms("主角抵达港口", nil), nil, nil, th)
	if !report.Sufficient {
		t.Error("a non-critical weak gap should not block sufficiency")
	}
	if len(report.WeakGaps) != 1 {
		t.Errorf("the weak gap should still be reported, got %v", report.WeakGaps)
	}
	if report.NeedsUserInput {
		t.Error("sufficient research does not need user input")
	}
}

func TestClassifySkipsUnaskableGaps(t *testing.T) {
	th := testThresholds()
	gap := ExtraResearchGap("zh", []string{"张三"})
	gap.Score = 0

	report := Classify([]Gap{gap}, nil, nil, nil, th)
	if !report.Sufficient {
		t.Error("a retrieval-only gap must not block sufficiency")
	}
	if len(report.MissingEntities) != 0 {
		t.Errorf("a retrieval-only gap is never missing, got %v", report.MissingEntities)
	}
}

func TestClassifyUnknownGapsCarryDeclinedTexts(t *testing.T) {
	th := testThresholds()
	gap := gapWithQueries(GapDetail, "本章发生在什么时间", "时间 地点 场景")
	gap.Score = 5.0

	declined := []string{"守卫换班的时间", "守卫换班的时间"}
	report := Classify([]Gap{gap}, nil, declined, nil, th)
	if len(report.UnknownGaps) != 1 || report.UnknownGaps[0] != "守卫换班的时间" {
		t.Errorf("declined gap texts dedupe into unknown gaps, got %v", report.UnknownGaps)
	}
}

func TestClassifyEvidenceTypesCounts(t *testing.T) {
	th := testThresholds()
	pool := []evidence.SearchResult{
		result(evidence.KindFact, "事实一", 4.0),
		result(evidence.KindFact, "事实二", 3.0),
		result(evidence.KindWorldRule, "规则一", 5.0),
	}
	report := Classify(nil, nil, nil, pool, th)
	if report.EvidenceTypes["fact"] != 2 || report.EvidenceTypes["world_rule"] != 1 {
		t.Errorf("evidence types must count the pool per kind, got %v", report.EvidenceTypes)
	}
}

func TestSelectUnresolvedGapsPrefersUnsupported(t *testing.T) {
	th := testThresholds()
	gaps := []Gap{
		gapWithQueries(GapDetail, "守卫换班的时间", "守卫 换班"),
		gapWithQueries(GapPlotPoint, "本章情节如何达成：主角抵达港口", "主角抵达港口"),
		gapWithQueries(GapDetail, "港口的天气", "港口 天气"),
	}
	gaps[0].Score = 0   // unsupported
	gaps[1].Score = 3.4 // weak and plot-relevant
	gaps[2].Score = 5.0 // well supported

	selected := SelectUnresolvedGaps(gaps, FocusTerms("主角抵达港口", nil), th, false)
	if len(selected) != 2 {
		t.Fatalf("expected 2 unresolved gaps, got %d", len(selected))
	}
	if selected[0].Text != gaps[0].Text {
		t.Errorf("unsupported gap should come first, got %q", selected[0].Text)
	}
	if selected[1].Text != gaps[1].Text {
		t.Errorf("weak plot gap should follow, got %q", selected[1].Text)
	}
}

func TestSelectUnresolvedGapsCap(t *testing.T) {
	th := testThresholds()
	var gaps []Gap
	for _, text := range []string{"甲缺口", "乙缺口", "丙缺口", "丁缺口"} {
		gap := gapWithQueries(GapDetail, text, text)
		gap.Score = 0
		gaps = append(gaps, gap)
	}
	if got := len(SelectUnresolvedGaps(gaps, nil, th, false)); got != 3 {
		t.Errorf("expected at most 3 unresolved gaps, got %d", got)
	}
}

func TestSelectUnresolvedGapsForceMinimum(t *testing.T) {
	th := testThresholds()
	gaps := []Gap{
		gapWithQueries(GapDetail, "守卫换班的时间", "守卫 换班"),
		gapWithQueries(GapPlotPoint, "本章情节如何达成：主角抵达港口", "主角抵达港口"),
	}
	gaps[0].Score = 5.0
	gaps[1].Score = 5.0 // everything resolved

	selected := SelectUnresolvedGaps(gaps, nil, th, true)
	if len(selected) == 0 {
		t.Fatal("force minimum must surface at least one gap")
	}
	if selected[0].Kind != GapPlotPoint {
		t.Errorf("the plot gap leads under force minimum, got %s", selected[0].Kind)
	}
}

func TestSelectUnresolvedGapsNeverPicksUnaskable(t *testing.T) {
	th := testThresholds()
	gap := ExtraResearchGap("zh", []string{"张三"})
	gap.Score = 0
	if selected := SelectUnresolvedGaps([]Gap{gap}, nil, th, true); len(selected) != 0 {
		t.Errorf("retrieval-only gaps are never surfaced, got %v", selected)
	}
}

func TestWellSupported(t *testing.T) {
	th := testThresholds()
	if th.WellSupported(3.7) {
		t.Error("3.7 is below the well-supported bar")
	}
	if !th.WellSupported(3.8) {
		t.Error("3.8 clears the well-supported bar")
	}
}
