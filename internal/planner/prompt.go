package planner

import (
	"fmt"
	"strings"
)

// evidenceOrder keeps the evidence summary stable across prompts.
var evidenceOrder = []string{
	"world_rule", "fact", "summary", "world_entity",
	"character", "text_chunk", "memory",
}

const systemPromptZH = `你是小说创作助手的检索规划器。根据本章目标与当前知识缺口，提出下一轮应检索的查询。
只输出 JSON 对象：{"queries":[{"query":"...","kinds":["fact","world_rule"],"gap_kind":"..."}],"note":"..."}。
queries 数量不超过 6 个；如果已有信息足够，返回空的 queries。note 用于给下一轮留下简短的检索笔记。`

const systemPromptEN = `You are the retrieval planner of a novel-writing assistant. Given the chapter goal and the current knowledge gaps, propose the queries to retrieve next.
Output only a JSON object: {"queries":[{"query":"...","kinds":["fact","world_rule"],"gap_kind":"..."}],"note":"..."}.
Propose at most 6 queries; return an empty queries array when the available material already suffices. Use note to leave a short remark for the next round.`

func systemPrompt(language string) string {
	if language == "en" {
		return systemPromptEN
	}
	return systemPromptZH
}

// roundStrategy nudges the planner differently as rounds progress: broad
// entity coverage first, then rules and constraints, then the weakest gaps.
func roundStrategy(round, maxRounds int, language string) string {
	en := language == "en"
	switch {
	case round <= 1:
		if en {
			return "Round 1: cover the involved characters and settings broadly."
		}
		return "第 1 轮：广泛覆盖涉及的角色与场景设定。"
	case round == 2:
		if en {
			return "Round 2: focus on world rules and hard constraints that bind this chapter."
		}
		return "第 2 轮：重点检索约束本章的世界规则与硬性设定。"
	default:
		if en {
			return fmt.Sprintf("Round %d of %d: target only the weakest unresolved gaps.", round, maxRounds)
		}
		return fmt.Sprintf("第 %d 轮（共 %d 轮）：只针对仍然薄弱的缺口检索。", round, maxRounds)
	}
}

func userPrompt(req Request) string {
	var b strings.Builder
	en := req.Language == "en"

	if en {
		fmt.Fprintf(&b, "Chapter: %s\nGoal: %s\n", req.Chapter, req.Goal)
		if req.Brief != "" {
			fmt.Fprintf(&b, "Scene brief: %s\n", req.Brief)
		}
	} else {
		fmt.Fprintf(&b, "章节：%s\n本章目标:%s\n", req.Chapter, req.Goal)
		if req.Brief != "" {
			fmt.Fprintf(&b, "场景梗概:%s\n", req.Brief)
		}
	}

	b.WriteString("\n")
	b.WriteString(roundStrategy(req.Round, req.MaxRounds, req.Language))
	b.WriteString("\n\n")

	if en {
		b.WriteString("Current gaps:\n")
	} else {
		b.WriteString("当前知识缺口：\n")
	}
	for _, gap := range req.Gaps {
		status := "ok"
		if gap.Weak {
			status = "weak"
		}
		fmt.Fprintf(&b, "- [%s] %s (score %.1f, %s)\n", gap.Kind, gap.Text, gap.Score, status)
	}

	if len(req.Evidence) > 0 {
		if en {
			b.WriteString("\nEvidence collected so far:\n")
		} else {
			b.WriteString("\n已收集的证据：\n")
		}
		for _, kind := range evidenceOrder {
			if n := req.Evidence[kind]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", kind, n)
			}
		}
	}

	if req.PreviousNote != "" {
		if en {
			fmt.Fprintf(&b, "\nNote from the previous round: %s\n", req.PreviousNote)
		} else {
			fmt.Fprintf(&b, "\n上一轮笔记：%s\n", req.PreviousNote)
		}
	}
	return b.String()
}
