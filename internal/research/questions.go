package research

import (
	"fmt"
	"strings"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/textutil"
)

// answeredScoreBonus pins an answered gap comfortably above the support
// minimum so it never reads as weak again.
const answeredScoreBonus = 1.0

// answerWeight is the retrieval weight of evidence created from user
// answers; the author's own word outranks everything else.
const answerWeight = 10.0

// QuestionKey builds the stable identity of a question so re-asking the
// same thing across runs maps to the same answer.
func QuestionKey(chapter string, kind GapKind, text string) string {
	return textutil.NormalizeForDedup(chapter + "|" + string(kind) + "|" + text)
}

// GenerateQuestions phrases the unresolved gaps as at most max user
// questions. Keys listed in exclude (answered or declined before) are never
// re-asked, and gaps flagged ask_user=false never get this far because the
// unresolved selector drops them.
func GenerateQuestions(chapter, language string, unresolved []Gap, max int, exclude map[string]bool) []Question {
	if max <= 0 {
		return nil
	}

	var questions []Question
	seen := make(map[string]bool)
	for i := range unresolved {
		if len(questions) >= max {
			break
		}
		gap := &unresolved[i]
		if gap.Answered || !gap.AskUser || gap.Text == "" {
			continue
		}
		key := QuestionKey(chapter, gap.Kind, gap.Text)
		if seen[key] || exclude[key] {
			continue
		}
		seen[key] = true
		questions = append(questions, Question{
			Key:    key,
			Kind:   string(gap.Kind),
			Text:   phraseQuestion(gap, language),
			Reason: phraseReason(gap, language),
		})
	}
	return questions
}

// phraseQuestion localizes a gap into a user-facing question, prefixed by
// what kind of answer research is missing.
func phraseQuestion(gap *Gap, language string) string {
	text := strings.TrimSpace(gap.Text)
	if language == "en" {
		text = strings.TrimSuffix(text, ".")
		if strings.Contains(text, "?") {
			return text
		}
		switch gap.Kind {
		case GapPlotPoint:
			return fmt.Sprintf("To achieve this chapter goal, %s?", text)
		case GapCharacterChange:
			return fmt.Sprintf("Character: %s?", text)
		default:
			return fmt.Sprintf("Details: %s?", text)
		}
	}

	text = strings.TrimSuffix(text, "？")
	switch gap.Kind {
	case GapPlotPoint:
		return fmt.Sprintf("为达成本章目标，%s？", text)
	case GapCharacterChange:
		return fmt.Sprintf("角色方面：%s？", text)
	default:
		return fmt.Sprintf("细节方面：%s？", text)
	}
}

func phraseReason(gap *Gap, language string) string {
	if language == "en" {
		return "Insufficient evidence; gap: " + gap.Text
	}
	return "证据不足，缺口：" + gap.Text
}

// ApplyAnswers folds the user's latest responses into the gaps. Informative
// answers pin the gap score above the minimum; gaps of skip kinds stop being
// retrieved at all. Non-informative answers only suppress re-asking; their
// gap texts come back as unknownGaps for the sufficiency report.
func ApplyAnswers(chapter string, gaps []Gap, latest map[string]answers.Answer, th Thresholds) (excludeKeys map[string]bool, unknownGaps []string) {
	excludeKeys = make(map[string]bool, len(latest))
	for key := range latest {
		excludeKeys[key] = true
	}

	for i := range gaps {
		key := QuestionKey(chapter, gaps[i].Kind, gaps[i].Text)
		answer, ok := latest[key]
		if !ok {
			continue
		}
		if answer.Informative() {
			gaps[i].Answered = true
			gaps[i].Score = th.MinGapSupport + answeredScoreBonus
		} else {
			unknownGaps = append(unknownGaps, gaps[i].Text)
		}
	}
	return excludeKeys, unknownGaps
}

// SkipRetrieval reports whether retrieval should be skipped for a gap: the
// user has already answered it and its kind treats the answer as final.
func SkipRetrieval(gap *Gap) bool {
	return gap.Answered && skipRetrievalKinds[gap.Kind]
}

// AnswerItems converts informative answers into memory evidence so later
// retrieval naturally surfaces them.
func AnswerItems(projectID, chapter string, latest map[string]answers.Answer) []evidence.Item {
	var items []evidence.Item
	for _, a := range latest {
		if !a.Informative() {
			continue
		}
		text := strings.TrimSpace(a.Question)
		if text != "" {
			text += " "
		}
		text += strings.TrimSpace(a.Answer)
		items = append(items, evidence.Item{
			ProjectID: projectID,
			Kind:      evidence.KindMemory,
			Text:      text,
			Weight:    answerWeight,
			Chapter:   chapter,
			Source:    map[string]string{"origin": "user_answer", "question_key": a.QuestionKey},
		})
	}
	return items
}
