package chunker

import (
	"regexp"
	"strings"

	"github.com/coveview/dealscan/internal/document"
)

// Config controls chunking behavior.
type Config struct {
	MaxChunkChars int // Sections longer than this are split on paragraph/sentence boundaries.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunkChars: 8000,
	}
}

// A block is treated as a section header when it is a single short line with
// no lowercase letters (CIM section headings are conventionally set in caps).
const maxHeaderLen = 80

// Chunk splits raw document text into ordered, classified chunks. It is a
// pure function of its input: identical text always yields identical chunk
// boundaries, indices, and section classifications.
func Chunk(text string, cfg Config) []document.Chunk {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = 8000
	}

	blocks := splitBlocks(text)

	var chunks []document.Chunk
	index := 0

	sectionType := document.SectionOther
	sectionTitle := ""
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n\n")
		current = nil
		for _, part := range splitOversized(body, cfg.MaxChunkChars) {
			c := document.Chunk{
				Text:        part,
				Index:       index,
				CharLen:     len(part),
				SectionType: sectionType,
				Title:       sectionTitle,
			}
			c.PageStart, c.PageEnd = pageRange(part)
			chunks = append(chunks, c)
			index++
		}
	}

	for _, block := range blocks {
		if isSectionHeader(block) {
			flush()
			sectionTitle = block
			sectionType = ClassifySection(block)
			continue
		}
		current = append(current, block)
	}
	flush()

	return chunks
}

// splitBlocks splits text on blank lines, trimming each block.
func splitBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n\n")
	var blocks []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			blocks = append(blocks, p)
		}
	}
	return blocks
}

// isSectionHeader reports whether a block looks like a CIM section heading:
// one short line, at least one letter, and no lowercase letters.
func isSectionHeader(block string) bool {
	if len(block) > maxHeaderLen || strings.Contains(block, "\n") {
		return false
	}
	hasLetter := false
	for _, r := range block {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// sectionKeywords maps header keywords to section types. Order matters:
// more specific phrases are checked before generic ones.
var sectionKeywords = []struct {
	keyword string
	typ     document.SectionType
}{
	{"executive summary", document.SectionExecutiveSummary},
	{"overview", document.SectionExecutiveSummary},
	{"summary", document.SectionExecutiveSummary},
	{"risk", document.SectionRiskAnalysis},
	{"financial", document.SectionFinancialMetrics},
	{"revenue", document.SectionFinancialMetrics},
	{"ebitda", document.SectionFinancialMetrics},
	{"income", document.SectionFinancialMetrics},
	{"balance sheet", document.SectionFinancialMetrics},
	{"business model", document.SectionBusinessModel},
	{"products", document.SectionBusinessModel},
	{"services", document.SectionBusinessModel},
	{"operations", document.SectionBusinessModel},
	{"management", document.SectionManagement},
	{"leadership", document.SectionManagement},
	{"team", document.SectionManagement},
	{"organization", document.SectionManagement},
	{"market", document.SectionMarketAnalysis},
	{"industry", document.SectionMarketAnalysis},
	{"competiti", document.SectionMarketAnalysis},
}

// ClassifySection maps a section header to a SectionType by keyword match.
func ClassifySection(header string) document.SectionType {
	h := strings.ToLower(header)
	for _, kw := range sectionKeywords {
		if strings.Contains(h, kw.keyword) {
			return kw.typ
		}
	}
	return document.SectionOther
}

// splitOversized breaks a section body into pieces no larger than maxChars,
// preferring paragraph boundaries and falling back to sentence boundaries.
// No overlap is added: concatenating the pieces reproduces the body.
func splitOversized(body string, maxChars int) []string {
	if len(body) <= maxChars {
		return []string{body}
	}

	paragraphs := strings.Split(body, "\n\n")

	var result []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			result = append(result, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > maxChars {
			flush()
			result = append(result, splitBySentences(para, maxChars)...)
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(para) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return result
}

// splitBySentences breaks an oversized paragraph into sentence-based pieces.
func splitBySentences(text string, maxChars int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder

	for _, sent := range sentences {
		if current.Len() > 0 && current.Len()+1+len(sent) > maxChars {
			result = append(result, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

var pageMarkerRe = regexp.MustCompile(`\[Page (\d+)\]`)

// pageRange scans for "[Page N]" markers left by the PDF extractor and
// returns the lowest and highest page referenced, or zeros if none.
func pageRange(text string) (int, int) {
	matches := pageMarkerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, 0
	}
	lo, hi := 0, 0
	for _, m := range matches {
		n := 0
		for _, d := range m[1] {
			n = n*10 + int(d-'0')
		}
		if lo == 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}
