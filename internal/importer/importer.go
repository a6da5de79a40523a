// Package importer ingests manuscript files into the evidence store. Each
// matched file becomes a chapter: its text is chunked into text_chunk
// evidence, its lead paragraph becomes a summary item, and the chapter gets
// a sequence-ordered binding.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/plotforge/plotforge/internal/binding"
	"github.com/plotforge/plotforge/internal/config"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/textutil"
)

// maxChunkRunes bounds one text chunk. Paragraphs merge up to this size so
// retrieval scores whole scenes rather than single sentences.
const maxChunkRunes = 500

// Result summarizes one import run.
type Result struct {
	Files    int      `json:"files"`
	Chunks   int      `json:"chunks"`
	Chapters []string `json:"chapters"`
}

// Importer walks a project directory and loads chapters into the store.
type Importer struct {
	cfg      *config.Config
	evidence *evidence.Store
	binder   *binding.Binder
}

// New creates an importer.
func New(cfg *config.Config, evidenceStore *evidence.Store, binder *binding.Binder) *Importer {
	return &Importer{cfg: cfg, evidence: evidenceStore, binder: binder}
}

// Run imports every file under root matched by the configured include globs
// and not matched by the exclude globs. Re-importing a file replaces its
// previous chunks. Chapter sequence follows lexical file order.
func (imp *Importer) Run(ctx context.Context, projectID, root string) (*Result, error) {
	files, err := imp.matchFiles(root)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for seq, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := imp.importFile(ctx, projectID, root, rel, seq+1)
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", rel, err)
		}
		result.Files++
		result.Chunks += chunks
		result.Chapters = append(result.Chapters, chapterName(rel))
	}
	return result, nil
}

// matchFiles resolves the include globs against root and filters excludes.
// Paths come back relative to root, sorted.
func (imp *Importer) matchFiles(root string) ([]string, error) {
	rootFS := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range imp.cfg.Include {
		matches, err := doublestar.Glob(rootFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if seen[rel] || imp.excluded(rel) {
				continue
			}
			info, err := os.Stat(filepath.Join(root, rel))
			if err != nil || info.IsDir() {
				continue
			}
			seen[rel] = true
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (imp *Importer) excluded(rel string) bool {
	for _, pattern := range imp.cfg.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// importFile replaces a file's evidence with freshly chunked text and
// upserts the chapter binding, preserving any manually bound entities.
func (imp *Importer) importFile(ctx context.Context, projectID, root, rel string, seq int) (int, error) {
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return 0, err
	}

	var plain string
	if strings.EqualFold(filepath.Ext(rel), ".md") {
		plain = stripMarkdown(data)
	} else {
		plain = string(data)
	}
	chunks := chunkText(plain, maxChunkRunes)
	chapter := chapterName(rel)

	if err := imp.evidence.DeleteBySource(ctx, projectID, rel); err != nil {
		return 0, err
	}

	items := make([]evidence.Item, 0, len(chunks)+1)
	for i, chunk := range chunks {
		items = append(items, evidence.Item{
			ProjectID: projectID,
			Kind:      evidence.KindTextChunk,
			Text:      chunk,
			Chapter:   chapter,
			Source: map[string]string{
				"origin": "import",
				"path":   rel,
				"chunk":  fmt.Sprintf("%d", i),
			},
		})
	}
	chunkCount := len(items)

	if lead := chapterSummary(chapter, chunks); lead != "" {
		items = append(items, evidence.Item{
			ProjectID: projectID,
			Kind:      evidence.KindSummary,
			Text:      lead,
			Chapter:   chapter,
			Source: map[string]string{
				"origin": "import",
				"path":   rel,
			},
		})
	}

	if err := imp.evidence.Add(ctx, items); err != nil {
		return 0, err
	}

	if err := imp.upsertBinding(ctx, projectID, chapter, seq); err != nil {
		return 0, err
	}
	return chunkCount, nil
}

// maxSummaryRunes bounds the chapter summary emitted alongside the chunks.
const maxSummaryRunes = 200

// chapterSummary derives a coarse summary item from the chapter's opening
// text. Without an authored synopsis the lead paragraph is the best anchor
// retrieval has for "what happens in this chapter".
func chapterSummary(chapter string, chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}
	lead := textutil.TruncateToBoundary(chunks[0], maxSummaryRunes)
	if lead == "" {
		return ""
	}
	return chapter + ": " + lead
}

func (imp *Importer) upsertBinding(ctx context.Context, projectID, chapter string, seq int) error {
	b := &binding.Binding{ProjectID: projectID, Chapter: chapter, Seq: seq}
	if existing, err := imp.binder.Get(ctx, projectID, chapter); err != nil {
		return err
	} else if existing != nil {
		b.Characters = existing.Characters
		b.WorldEntities = existing.WorldEntities
	}
	return imp.binder.Upsert(ctx, b)
}

// chapterName derives the chapter identifier from the file path.
func chapterName(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// chunkText splits plain text into paragraph-aligned chunks of at most
// maxRunes runes. Oversized paragraphs are cut at sentence boundaries.
func chunkText(text string, maxRunes int) []string {
	var chunks []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentRunes = 0
	}

	for _, para := range splitParagraphs(text) {
		for _, piece := range splitOversized(para, maxRunes) {
			runes := len([]rune(piece))
			if currentRunes > 0 && currentRunes+runes > maxRunes {
				flush()
			}
			if currentRunes > 0 {
				current.WriteString("\n")
				currentRunes++
			}
			current.WriteString(piece)
			currentRunes += runes
		}
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	for _, p := range strings.Split(normalized, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// splitOversized cuts a paragraph longer than maxRunes at text boundaries
// using the same boundary rules as memory rendering.
func splitOversized(para string, maxRunes int) []string {
	runes := []rune(para)
	if len(runes) <= maxRunes {
		return []string{para}
	}
	var pieces []string
	rest := para
	for len([]rune(rest)) > maxRunes {
		head := strings.TrimSuffix(textutil.TruncateToBoundary(rest, maxRunes), "…")
		if head == "" {
			head = string([]rune(rest)[:maxRunes])
		}
		pieces = append(pieces, strings.TrimSpace(head))
		rest = strings.TrimSpace(strings.TrimPrefix(rest, head))
		if rest == "" {
			return pieces
		}
	}
	return append(pieces, rest)
}
