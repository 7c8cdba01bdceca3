package document

// SectionType classifies what part of a CIM a chunk came from.
type SectionType string

const (
	SectionExecutiveSummary SectionType = "executive_summary"
	SectionFinancialMetrics SectionType = "financial_metrics"
	SectionRiskAnalysis     SectionType = "risk_analysis"
	SectionBusinessModel    SectionType = "business_model"
	SectionManagement       SectionType = "management"
	SectionMarketAnalysis   SectionType = "market_analysis"
	SectionOther            SectionType = "other"
)

// Document is the raw text of an ingested CIM plus its stable identifier.
// Immutable once created; the pipeline references it, never mutates it.
type Document struct {
	ID   string
	Text string
}

// Chunk is an ordered, classified substring of a document. Chunks of one
// document concatenated in Index order reproduce the document's sectioned
// text (section-header lines are consumed by classification).
type Chunk struct {
	Text        string         `json:"chunk_text"`
	Index       int            `json:"chunk_index"`
	CharLen     int            `json:"char_length"`
	SectionType SectionType    `json:"section_type"`
	Title       string         `json:"section_title,omitempty"`
	PageStart   int            `json:"page_start,omitempty"`
	PageEnd     int            `json:"page_end,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Processed   bool           `json:"processed_by_ai"`
}
