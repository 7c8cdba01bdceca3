package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// Inconsistency is one finding of the consistency agent.
type Inconsistency struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Severity    string `json:"severity"`
	Impact      string `json:"impact"`
	Resolution  string `json:"resolution"`
}

// ConsistencyScores holds per-dimension consistency scores in [0.0, 1.0].
type ConsistencyScores struct {
	FinancialConsistency float64 `json:"financial_consistency"`
	NarrativeConsistency float64 `json:"narrative_consistency"`
	MetricConsistency    float64 `json:"metric_consistency"`
	TimelineConsistency  float64 `json:"timeline_consistency"`
	OverallConsistency   float64 `json:"overall_consistency"`
}

// ConsistencyAnalysis is the consistency agent's validated output.
type ConsistencyAnalysis struct {
	ConsistencySummary string            `json:"consistency_summary"`
	Inconsistencies    []Inconsistency   `json:"inconsistencies"`
	ConsistencyScores  ConsistencyScores `json:"consistency_scores"`
	Recommendations    []string          `json:"recommendations"`
	ConfidenceScore    float64           `json:"confidence_score"`
}

var consistencySchema = &schema.Schema{Fields: []schema.Field{
	{Name: "consistency_summary", Kind: schema.String},
	{Name: "inconsistencies", Kind: schema.Array, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "type", Kind: schema.String, Enum: []string{"financial", "narrative", "metric", "timeline", "other"}, Fallback: "other"},
		{Name: "description", Kind: schema.String},
		{Name: "location", Kind: schema.String},
		{Name: "severity", Kind: schema.String, Enum: []string{"high", "medium", "low"}, Fallback: "medium"},
		{Name: "impact", Kind: schema.String},
		{Name: "resolution", Kind: schema.String},
	}}},
	{Name: "consistency_scores", Kind: schema.Object, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "financial_consistency", Kind: schema.Score},
		{Name: "narrative_consistency", Kind: schema.Score},
		{Name: "metric_consistency", Kind: schema.Score},
		{Name: "timeline_consistency", Kind: schema.Score},
		{Name: "overall_consistency", Kind: schema.Score},
	}}},
	{Name: "recommendations", Kind: schema.Array, Strings: true},
	{Name: "confidence_score", Kind: schema.Score},
}}

// ConsistencyAgent cross-checks narrative claims against the financial
// metrics and risks extracted by the upstream agents.
type ConsistencyAgent struct {
	model Completer
}

func NewConsistencyAgent(model Completer) *ConsistencyAgent {
	return &ConsistencyAgent{model: model}
}

func (a *ConsistencyAgent) Name() string { return "consistency" }

const consistencyBudget = 20000

func (a *ConsistencyAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text, actx), a.parse)
}

func (a *ConsistencyAgent) buildPrompt(text string, actx *Context) string {
	var sb strings.Builder
	sb.WriteString(`You are a consistency analyst. Check the following CIM document for inconsistencies and contradictions.

Return a JSON object with EXACTLY this structure:

{
    "consistency_summary": "string",    // Overall consistency assessment
    "inconsistencies": [
        {
            "type": "string",           // One of: "financial", "narrative", "metric", "timeline", "other"
            "description": "string",    // Description of the inconsistency
            "location": "string",       // Where in the document this was found
            "severity": "string",       // One of: "high", "medium", "low"
            "impact": "string",         // Impact on analysis
            "resolution": "string"      // Suggested resolution
        }
    ],
    "consistency_scores": {
        "financial_consistency": 0.0,   // 0.0 to 1.0
        "narrative_consistency": 0.0,   // 0.0 to 1.0
        "metric_consistency": 0.0,      // 0.0 to 1.0
        "timeline_consistency": 0.0,    // 0.0 to 1.0
        "overall_consistency": 0.0      // 0.0 to 1.0
    },
    "recommendations": [],              // Array of recommendations
    "confidence_score": 0.0             // 0.0 to 1.0
}

IMPORTANT:
- All fields must be present
- Consistency scores must be between 0.0 and 1.0
- Inconsistency types must be one of: financial, narrative, metric, timeline, other
- Severity must be one of: high, medium, low
`)

	writeContext(&sb, actx)

	sb.WriteString("\nCIM Document:\n")
	sb.WriteString(truncateText(text, consistencyBudget))
	sb.WriteString(`

Cross-reference the extracted metrics and risks above against the document narrative. Check financial statement consistency, narrative consistency across sections, metric calculations, and timeline consistency.

Return ONLY the JSON object with no additional text.`)
	return sb.String()
}

func (a *ConsistencyAgent) parse(raw string) (any, []string, error) {
	m, err := FirstObject(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, notes := consistencySchema.Normalize(m)

	var analysis ConsistencyAnalysis
	if err := decode(normalized, &analysis); err != nil {
		return nil, nil, err
	}
	return &analysis, notes, nil
}

// writeContext interpolates upstream agents' validated outputs into a
// prompt so the model can cross-reference them.
func writeContext(sb *strings.Builder, actx *Context) {
	if actx == nil {
		return
	}
	if len(actx.FinancialMetrics) > 0 {
		if b, err := json.MarshalIndent(actx.FinancialMetrics, "", "  "); err == nil {
			fmt.Fprintf(sb, "\nExtracted financial metrics:\n%s\n", b)
		}
	}
	if actx.Risks != nil {
		if b, err := json.MarshalIndent(actx.Risks.RiskCategories, "", "  "); err == nil {
			fmt.Fprintf(sb, "\nIdentified risks:\n%s\n", b)
		}
	}
	if actx.Consistency != nil && len(actx.Consistency.Inconsistencies) > 0 {
		if b, err := json.MarshalIndent(actx.Consistency.Inconsistencies, "", "  "); err == nil {
			fmt.Fprintf(sb, "\nKnown inconsistencies:\n%s\n", b)
		}
	}
}
