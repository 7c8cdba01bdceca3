package chunker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/coveview/dealscan/internal/document"
)

const sampleCIM = `EXECUTIVE SUMMARY

Acme Industrial is a leading manufacturer of precision widgets serving the
North American market since 1987.

FINANCIAL HIGHLIGHTS

Revenue: $10M (2023), EBITDA: $2M, Revenue CAGR: 15%.

The company has grown revenue consistently over the past five years.

RISK FACTORS

Customer concentration: the top three customers represent 60% of revenue.

MANAGEMENT TEAM

The founder-CEO has led the business for over thirty years.`

func TestChunk_SectionDetectionAndClassification(t *testing.T) {
	chunks := Chunk(sampleCIM, DefaultConfig())

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	want := []struct {
		title string
		typ   document.SectionType
	}{
		{"EXECUTIVE SUMMARY", document.SectionExecutiveSummary},
		{"FINANCIAL HIGHLIGHTS", document.SectionFinancialMetrics},
		{"RISK FACTORS", document.SectionRiskAnalysis},
		{"MANAGEMENT TEAM", document.SectionManagement},
	}
	for i, w := range want {
		if chunks[i].Title != w.title {
			t.Errorf("chunk %d: expected title %q, got %q", i, w.title, chunks[i].Title)
		}
		if chunks[i].SectionType != w.typ {
			t.Errorf("chunk %d: expected section type %q, got %q", i, w.typ, chunks[i].SectionType)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunks[i].Index)
		}
		if chunks[i].CharLen != len(chunks[i].Text) {
			t.Errorf("chunk %d: CharLen %d does not match text length %d", i, chunks[i].CharLen, len(chunks[i].Text))
		}
	}
}

func TestChunk_Idempotent(t *testing.T) {
	first := Chunk(sampleCIM, DefaultConfig())
	second := Chunk(sampleCIM, DefaultConfig())
	if !reflect.DeepEqual(first, second) {
		t.Error("re-running the chunker on identical text produced different chunks")
	}
}

func TestChunk_RoundTripPreservesSectionOrder(t *testing.T) {
	chunks := Chunk(sampleCIM, DefaultConfig())

	// Concatenating chunk texts in index order must reproduce the document
	// body in order (header lines are consumed by classification).
	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
		joined.WriteString("\n\n")
	}
	got := joined.String()

	markers := []string{
		"Acme Industrial",
		"Revenue: $10M",
		"Customer concentration",
		"founder-CEO",
	}
	lastPos := -1
	for _, m := range markers {
		pos := strings.Index(got, m)
		if pos < 0 {
			t.Fatalf("reconstructed text missing %q", m)
		}
		if pos < lastPos {
			t.Errorf("marker %q appears out of order", m)
		}
		lastPos = pos
	}
}

func TestChunk_TextWithoutHeaders(t *testing.T) {
	text := "Just a plain paragraph.\n\nAnd another one."
	chunks := Chunk(text, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].SectionType != document.SectionOther {
		t.Errorf("expected section type other, got %q", chunks[0].SectionType)
	}
	if chunks[0].Title != "" {
		t.Errorf("expected empty title, got %q", chunks[0].Title)
	}
}

func TestChunk_OversizedSectionIsSplit(t *testing.T) {
	para := strings.Repeat("The company reported strong results. ", 100) // ~3700 chars
	text := "FINANCIAL OVERVIEW\n\n" + para + "\n\n" + para

	cfg := Config{MaxChunkChars: 2000}
	chunks := Chunk(text, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected oversized section to split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c.SectionType != document.SectionFinancialMetrics {
			t.Errorf("chunk %d: expected financial_metrics, got %q", i, c.SectionType)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		// Sentence-boundary splitting can overshoot slightly, never wildly.
		if c.CharLen > cfg.MaxChunkChars*2 {
			t.Errorf("chunk %d: %d chars exceeds 2x limit", i, c.CharLen)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	if got := Chunk("", DefaultConfig()); len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(got))
	}
	if got := Chunk("\n\n  \n\n", DefaultConfig()); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace input, got %d", len(got))
	}
}

func TestChunk_PageRangeFromMarkers(t *testing.T) {
	text := "RISK FACTORS\n\n[Page 12] Customer concentration risk.\n\n[Page 14] Regulatory exposure."
	chunks := Chunk(text, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageStart != 12 || chunks[0].PageEnd != 14 {
		t.Errorf("expected pages 12-14, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
}

func TestIsSectionHeader(t *testing.T) {
	tests := []struct {
		block string
		want  bool
	}{
		{"RISK FACTORS", true},
		{"EXECUTIVE SUMMARY", true},
		{"III. MARKET ANALYSIS", true},
		{"Risk Factors", false},
		{"THIS IS A VERY LONG HEADER " + strings.Repeat("X", 80), false},
		{"LINE ONE\nLINE TWO", false},
		{"2023", false},
		{"$10M", false},
	}
	for _, tc := range tests {
		if got := isSectionHeader(tc.block); got != tc.want {
			t.Errorf("isSectionHeader(%q) = %v, want %v", tc.block, got, tc.want)
		}
	}
}

func TestClassifySection(t *testing.T) {
	tests := []struct {
		header string
		want   document.SectionType
	}{
		{"EXECUTIVE SUMMARY", document.SectionExecutiveSummary},
		{"COMPANY OVERVIEW", document.SectionExecutiveSummary},
		{"FINANCIAL PERFORMANCE", document.SectionFinancialMetrics},
		{"RISK FACTORS", document.SectionRiskAnalysis},
		{"FINANCIAL RISK REVIEW", document.SectionRiskAnalysis}, // risk wins over financial
		{"BUSINESS MODEL", document.SectionBusinessModel},
		{"PRODUCTS AND SERVICES", document.SectionBusinessModel},
		{"MANAGEMENT TEAM", document.SectionManagement},
		{"MARKET ANALYSIS", document.SectionMarketAnalysis},
		{"COMPETITIVE LANDSCAPE", document.SectionMarketAnalysis},
		{"APPENDIX", document.SectionOther},
	}
	for _, tc := range tests {
		if got := ClassifySection(tc.header); got != tc.want {
			t.Errorf("ClassifySection(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
