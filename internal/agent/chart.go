package agent

import (
	"context"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// ChartElement is one chart or table detected in the document text.
type ChartElement struct {
	Title       string         `json:"title"`
	ChartType   string         `json:"chart_type"`
	Description string         `json:"description"`
	DataPoints  map[string]any `json:"data_points"`
	SourcePage  int            `json:"source_page"`
	Metadata    map[string]any `json:"metadata"`
}

// ChartRelationship links a chart element to a related metric or text span.
type ChartRelationship struct {
	ChartTitle       string  `json:"chart_title"`
	RelatedElement   string  `json:"related_element"`
	RelationshipType string  `json:"relationship_type"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// ChartAnalysis is the chart agent's validated output.
type ChartAnalysis struct {
	ChartElements      []ChartElement      `json:"chart_elements"`
	ChartRelationships []ChartRelationship `json:"chart_relationships"`
	ConfidenceScore    float64             `json:"confidence_score"`
}

var chartSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "chart_elements", Kind: schema.Array, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "title", Kind: schema.String},
		{Name: "chart_type", Kind: schema.String, Enum: []string{"bar", "line", "pie", "table", "other"}, Fallback: "other"},
		{Name: "description", Kind: schema.String},
		{Name: "data_points", Kind: schema.Object},
		{Name: "source_page", Kind: schema.Number},
		{Name: "metadata", Kind: schema.Object},
	}}},
	{Name: "chart_relationships", Kind: schema.Array, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "chart_title", Kind: schema.String},
		{Name: "related_element", Kind: schema.String},
		{Name: "relationship_type", Kind: schema.String, Enum: []string{"explanation", "reference", "data_source"}, Fallback: "reference"},
		{Name: "confidence_score", Kind: schema.Score},
	}}},
	{Name: "confidence_score", Kind: schema.Score},
}}

// ChartAgent detects charts and tables described in the document text. It
// has no upstream dependencies.
type ChartAgent struct {
	model Completer
}

func NewChartAgent(model Completer) *ChartAgent {
	return &ChartAgent{model: model}
}

func (a *ChartAgent) Name() string { return "chart" }

const chartBudget = 15000

func (a *ChartAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text), a.parse)
}

func (a *ChartAgent) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`You are a data analyst. Identify charts, tables, and data visualizations described in the following CIM document.

Return a JSON object with EXACTLY this structure:

{
    "chart_elements": [
        {
            "title": "string",              // Chart or table title
            "chart_type": "string",         // One of: "bar", "line", "pie", "table", "other"
            "description": "string",        // What the chart shows
            "data_points": {},              // Key data points as a mapping
            "source_page": 0,               // Page number where found (0 if unknown)
            "metadata": {}                  // Free-form metadata
        }
    ],
    "chart_relationships": [
        {
            "chart_title": "string",        // The chart being related
            "related_element": "string",    // The metric or text span it relates to
            "relationship_type": "string",  // One of: "explanation", "reference", "data_source"
            "confidence_score": 0.0         // 0.0 to 1.0
        }
    ],
    "confidence_score": 0.0                 // 0.0 to 1.0
}

IMPORTANT:
- All fields must be present
- chart_type must be one of: bar, line, pie, table, other
- relationship_type must be one of: explanation, reference, data_source
- All scores must be between 0.0 and 1.0

CIM Document:
`)
	sb.WriteString(truncateText(text, chartBudget))
	sb.WriteString(`

Look for tabular data, financial exhibits, trend descriptions, and references to figures. Use [Page N] markers in the text to fill source_page.

Return ONLY the JSON object with no additional text.`)
	return sb.String()
}

func (a *ChartAgent) parse(raw string) (any, []string, error) {
	m, err := FirstObject(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, notes := chartSchema.Normalize(m)

	// source_page decodes into an int; drop any fractional part the model
	// produced.
	if els, ok := normalized["chart_elements"].([]any); ok {
		for _, el := range els {
			if m, ok := el.(map[string]any); ok {
				if p, ok := m["source_page"].(float64); ok {
					m["source_page"] = float64(int(p))
				}
			}
		}
	}

	var analysis ChartAnalysis
	if err := decode(normalized, &analysis); err != nil {
		return nil, nil, err
	}
	return &analysis, notes, nil
}
