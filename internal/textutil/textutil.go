// Package textutil provides the text normalization, term extraction, and
// deduplication primitives shared by the research engine. Everything here is
// a pure function so the compiler's filtering rules can be tested in
// isolation.
package textutil

import (
	"regexp"
	"strings"
)

var (
	reBold       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reUnderline  = regexp.MustCompile(`__(.*?)__`)
	reEllipsis   = regexp.MustCompile(`\.{3,}`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reCJKBlock   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	reASCIIWord  = regexp.MustCompile(`[a-z0-9]+`)
	reDedupStrip = regexp.MustCompile("[\\s\\-—–,，。；;、:：?？!！()（）\\[\\]{}<>\"“”'’]")
)

// rationaleMarkers are meta annotations that leak from card/brief text and
// must never reach the writer-facing memory block.
var rationaleMarkers = []string{"\n理由:", "\r\n理由:", "理由:"}

// CleanForMemory compacts evidence text for inclusion in working memory:
// rationale annotations are stripped, markdown emphasis removed, ellipses
// and whitespace normalized.
func CleanForMemory(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	for _, marker := range rationaleMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = strings.TrimSpace(text[:idx])
			break
		}
	}

	text = reBold.ReplaceAllString(text, "$1")
	text = reUnderline.ReplaceAllString(text, "$1")

	text = strings.ReplaceAll(text, "…", "")
	text = reEllipsis.ReplaceAllString(text, ".")
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeForDedup lowers the text and strips whitespace and punctuation so
// near-identical lines compare equal.
func NormalizeForDedup(text string) string {
	text = CleanForMemory(text)
	text = reDedupStrip.ReplaceAllString(text, "")
	return strings.ToLower(text)
}

// DedupContainment removes fuzzy duplicates from lines: two lines are
// duplicates when the normalized form of one contains the other. The longer
// (more informative) line wins.
func DedupContainment(lines []string) []string {
	var kept []string
	var keptNorms []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		norm := NormalizeForDedup(line)
		if norm == "" {
			continue
		}

		dup := -1
		for i, existing := range keptNorms {
			if strings.Contains(existing, norm) || strings.Contains(norm, existing) {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, line)
			keptNorms = append(keptNorms, norm)
			continue
		}
		if len(line) > len(kept[dup]) {
			kept[dup] = line
			keptNorms[dup] = norm
		}
	}
	return kept
}

// UniqueStrings trims and deduplicates while preserving order.
func UniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var result []string
	for _, item := range items {
		text := strings.TrimSpace(item)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		result = append(result, text)
	}
	return result
}

// ExtractTerms tokenizes text into matchable terms: Chinese runs become
// character n-grams of length 2 and 3 (single characters pass through as-is),
// everything else becomes lowercase ASCII word tokens.
func ExtractTerms(text string) []string {
	text = strings.ToLower(text)
	var terms []string
	for _, block := range reCJKBlock.FindAllString(text, -1) {
		runes := []rune(block)
		if len(runes) == 1 {
			terms = append(terms, block)
			continue
		}
		for _, n := range []int{2, 3} {
			if len(runes) < n {
				continue
			}
			for i := 0; i+n <= len(runes); i++ {
				terms = append(terms, string(runes[i:i+n]))
			}
		}
	}
	terms = append(terms, reASCIIWord.FindAllString(text, -1)...)
	return UniqueStrings(terms)
}

// TermOverlap counts how many of the terms occur in text.
func TermOverlap(text string, terms []string) int {
	count := 0
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			count++
		}
	}
	return count
}

// Truncate cuts text to at most maxLen runes, appending an ellipsis when cut.
func Truncate(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}

// sentence boundary candidates, CJK first since most project text is Chinese.
var boundaryPunct = []string{"。", "！", "？", "；", ";", "，", "、", ".", ","}

// TruncateToBoundary cuts text to at most maxLen runes, preferring to break
// at a punctuation boundary when one falls in the trailing two-thirds.
func TruncateToBoundary(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	head := string(runes[:maxLen])
	minRunes := maxLen / 3
	if minRunes < 12 {
		minRunes = 12
	}
	for _, punct := range boundaryPunct {
		idx := strings.LastIndex(head, punct)
		if idx < 0 {
			continue
		}
		if n := len([]rune(head[:idx])); n >= minRunes {
			return strings.TrimSpace(head[:idx+len(punct)])
		}
	}
	return Truncate(text, maxLen)
}

// NormalizeLanguage maps locale-like values ("zh-CN", "en_US") onto the two
// writing languages the engine supports.
func NormalizeLanguage(value, fallback string) string {
	raw := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.HasPrefix(raw, "en"):
		return "en"
	case strings.HasPrefix(raw, "zh"):
		return "zh"
	}
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		return "zh"
	}
	return fallback
}
