package agent

import (
	"context"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// MemoSection is one narrative section of the investment memo.
type MemoSection struct {
	Summary  string   `json:"summary"`
	Details  []string `json:"details"`
	Strength string   `json:"strength"`
}

// InvestmentMemo is the memo agent's validated output, the richest object
// in the pipeline.
type InvestmentMemo struct {
	InvestmentGrade      string      `json:"investment_grade"`
	ExecutiveSummary     string      `json:"executive_summary"`
	BusinessModel        MemoSection `json:"business_model"`
	FinancialMetrics     MemoSection `json:"financial_metrics"`
	KeyRisks             MemoSection `json:"key_risks"`
	CompetitivePosition  MemoSection `json:"competitive_position"`
	Recommendation       MemoSection `json:"recommendation"`
	InvestmentHighlights []string    `json:"investment_highlights"`
	ManagementQuestions  []string    `json:"management_questions"`
	ConfidenceScore      float64     `json:"confidence_score"`
}

var memoSectionSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "summary", Kind: schema.String},
	{Name: "details", Kind: schema.Array, Strings: true},
	{Name: "strength", Kind: schema.String},
}}

var memoSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "investment_grade", Kind: schema.String, Enum: []string{"a+", "a", "b+", "b", "c"}, Fallback: "b"},
	{Name: "executive_summary", Kind: schema.String},
	{Name: "business_model", Kind: schema.Object, Elem: memoSectionSchema},
	{Name: "financial_metrics", Kind: schema.Object, Elem: memoSectionSchema},
	{Name: "key_risks", Kind: schema.Object, Elem: memoSectionSchema},
	{Name: "competitive_position", Kind: schema.Object, Elem: memoSectionSchema},
	{Name: "recommendation", Kind: schema.Object, Elem: memoSectionSchema},
	{Name: "investment_highlights", Kind: schema.Array, Strings: true},
	{Name: "management_questions", Kind: schema.Array, Strings: true},
	{Name: "confidence_score", Kind: schema.Score},
}}

// MemoAgent synthesizes the full investment memo from the document and the
// upstream agents' validated outputs.
type MemoAgent struct {
	model Completer
}

func NewMemoAgent(model Completer) *MemoAgent {
	return &MemoAgent{model: model}
}

func (a *MemoAgent) Name() string { return "memo" }

const memoBudget = 25000

func (a *MemoAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text, actx), a.parse)
}

func (a *MemoAgent) buildPrompt(text string, actx *Context) string {
	var sb strings.Builder
	sb.WriteString(`You are a senior investment analyst. Generate a comprehensive investment memo for the following CIM document.

Return a JSON object with EXACTLY this structure:

{
    "investment_grade": "string",       // One of: "A+", "A", "B+", "B", "C"
    "executive_summary": "string",      // 2-3 paragraph executive summary
    "business_model": {
        "summary": "string",            // Business model assessment
        "details": [],                  // Array of supporting details
        "strength": "string"            // Overall strength assessment
    },
    "financial_metrics": {
        "summary": "string",
        "details": [],
        "strength": "string"
    },
    "key_risks": {
        "summary": "string",
        "details": [],
        "strength": "string"
    },
    "competitive_position": {
        "summary": "string",
        "details": [],
        "strength": "string"
    },
    "recommendation": {
        "summary": "string",            // Investment recommendation
        "details": [],
        "strength": "string"
    },
    "investment_highlights": [],        // Array of key investment highlights
    "management_questions": [],         // Array of questions for management
    "confidence_score": 0.0             // 0.0 to 1.0
}

IMPORTANT:
- All fields must be present
- investment_grade must be one of: A+, A, B+, B, C
- confidence_score must be between 0.0 and 1.0
`)

	writeContext(&sb, actx)

	sb.WriteString("\nCIM Document:\n")
	sb.WriteString(truncateText(text, memoBudget))
	sb.WriteString(`

Base the grade and recommendation on the extracted metrics, risks, and inconsistencies above as well as the document itself.

Return ONLY the JSON object with no additional text.`)
	return sb.String()
}

func (a *MemoAgent) parse(raw string) (any, []string, error) {
	m, err := FirstObject(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, notes := memoSchema.Normalize(m)

	var memo InvestmentMemo
	if err := decode(normalized, &memo); err != nil {
		return nil, nil, err
	}
	// The validator lowercases enum values; grades are presented uppercase.
	memo.InvestmentGrade = strings.ToUpper(memo.InvestmentGrade)
	return &memo, notes, nil
}
